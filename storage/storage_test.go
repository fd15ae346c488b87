package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edeas123/aws-terraform-casper/internal/config"
	"github.com/edeas123/aws-terraform-casper/types"
)

// mockS3Client implements S3API for testing.
type mockS3Client struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.PutObjectFunc(ctx, params, optFns...)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(ctx, params, optFns...)
}

func sampleInventory() types.Inventory {
	return types.Inventory{
		"aws_instance":       {"i-1", "i-2"},
		"aws_security_group": {"sg-1"},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terraform_state")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), sampleInventory()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"aws_instance":["i-1","i-2"],"aws_security_group":["sg-1"]}`, string(data))

	inv, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleInventory(), inv)
	assert.Equal(t, path, store.Location())
}

func TestFileStore_SaveNilWritesEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, NewFileStore(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestFileStore_LoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStateNotFound))
	assert.Contains(t, err.Error(), path)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStateNotFound))
}

func TestFileStore_SaveUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "state")

	err := NewFileStore(path).Save(context.Background(), sampleInventory())
	assert.Error(t, err)
}

func TestBoltStore_Revisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casper.db")
	store := NewBoltStore(path)
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, types.Inventory{"aws_instance": {"i-old"}}))
	require.NoError(t, store.Save(ctx, sampleInventory()))

	inv, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleInventory(), inv)

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].Number)
	assert.Equal(t, 1, history[0].Resources)
	assert.Equal(t, int64(2), history[1].Number)
	assert.Equal(t, 2, history[1].Groups)
	assert.Equal(t, 3, history[1].Resources)
	assert.Nil(t, history[1].Inventory)
	assert.True(t, history[1].SavedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestBoltStore_ManyRevisionsStayOrdered(t *testing.T) {
	store := NewBoltStore(filepath.Join(t.TempDir(), "casper.db"))
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Save(ctx, types.Inventory{"aws_instance": {string(rune('a' + i))}}))
	}

	inv, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"l"}, inv["aws_instance"])
}

func TestBoltStore_LoadMissing(t *testing.T) {
	store := NewBoltStore(filepath.Join(t.TempDir(), "missing.db"))

	_, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, ErrStateNotFound))

	_, err = store.History(context.Background())
	assert.True(t, errors.Is(err, ErrStateNotFound))
}

func TestS3Store_Save(t *testing.T) {
	var uploaded []byte
	client := &mockS3Client{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			assert.Equal(t, "casper-bucket", aws.ToString(params.Bucket))
			assert.Equal(t, "terraform_state", aws.ToString(params.Key))
			data, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			uploaded = data
			return &s3.PutObjectOutput{}, nil
		},
	}
	localPath := filepath.Join(t.TempDir(), "terraform_state")
	store := NewS3Store(client, "casper-bucket", "terraform_state", NewFileStore(localPath), zerolog.Nop())

	require.NoError(t, store.Save(context.Background(), sampleInventory()))
	assert.JSONEq(t, `{"aws_instance":["i-1","i-2"],"aws_security_group":["sg-1"]}`, string(uploaded))
	assert.NoFileExists(t, localPath)
	assert.Equal(t, "s3://casper-bucket/terraform_state", store.Location())
}

func TestS3Store_SaveFallsBackLocally(t *testing.T) {
	client := &mockS3Client{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("AccessDenied")
		},
	}
	localPath := filepath.Join(t.TempDir(), "terraform_state")
	store := NewS3Store(client, "casper-bucket", "terraform_state", NewFileStore(localPath), zerolog.Nop())

	require.NoError(t, store.Save(context.Background(), sampleInventory()))

	inv, err := NewFileStore(localPath).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleInventory(), inv)
}

func TestS3Store_SaveFallbackFailureReturned(t *testing.T) {
	client := &mockS3Client{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("AccessDenied")
		},
	}
	localPath := filepath.Join(t.TempDir(), "missing-dir", "terraform_state")
	store := NewS3Store(client, "casper-bucket", "terraform_state", NewFileStore(localPath), zerolog.Nop())

	err := store.Save(context.Background(), sampleInventory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), localPath)
}

func TestS3Store_Load(t *testing.T) {
	client := &mockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body: io.NopCloser(bytes.NewReader([]byte(`{"aws_s3_bucket":["logs"]}`))),
			}, nil
		},
	}
	store := NewS3Store(client, "b", "k", NewFileStore(filepath.Join(t.TempDir(), "k")), zerolog.Nop())

	inv, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Inventory{"aws_s3_bucket": {"logs"}}, inv)
}

func TestS3Store_LoadFallsBackLocally(t *testing.T) {
	client := &mockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("NoSuchKey")
		},
	}
	localPath := filepath.Join(t.TempDir(), "k")
	local := NewFileStore(localPath)
	require.NoError(t, local.Save(context.Background(), sampleInventory()))

	inv, err := NewS3Store(client, "b", "k", local, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleInventory(), inv)
}

func TestS3Store_LoadNowhere(t *testing.T) {
	client := &mockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("NoSuchBucket")
		},
	}
	store := NewS3Store(client, "b", "k", NewFileStore(filepath.Join(t.TempDir(), "k")), zerolog.Nop())

	_, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, ErrStateNotFound))
}

func TestNew_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.Nop()

	tests := []struct {
		name    string
		cfg     config.StateConfig
		client  S3API
		want    any
		wantErr bool
	}{
		{"file default", config.StateConfig{File: filepath.Join(dir, "a")}, nil, &FileStore{}, false},
		{"bolt", config.StateConfig{File: filepath.Join(dir, "b"), Backend: config.BackendBolt}, nil, &BoltStore{}, false},
		{"s3", config.StateConfig{File: "c", Bucket: "bucket"}, &mockS3Client{}, &S3Store{}, false},
		{"s3 without client", config.StateConfig{File: "c", Bucket: "bucket"}, nil, nil, true},
		{"unknown backend", config.StateConfig{File: "d", Backend: "sqlite"}, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg, tt.client, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
		})
	}
}
