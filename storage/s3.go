package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/edeas123/aws-terraform-casper/types"
)

// S3API defines the S3 operations used by the store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps the inventory as an object in a bucket. Any remote failure
// is logged and the local fallback store is used instead.
type S3Store struct {
	client   S3API
	bucket   string
	key      string
	fallback Store
	log      zerolog.Logger
}

// NewS3Store creates a store writing s3://bucket/key.
func NewS3Store(client S3API, bucket, key string, fallback Store, log zerolog.Logger) *S3Store {
	return &S3Store{
		client:   client,
		bucket:   bucket,
		key:      key,
		fallback: fallback,
		log:      log.With().Str("component", "storage").Logger(),
	}
}

// Location implements Store.
func (s *S3Store) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Save implements Store. Only a failure of the local fallback is returned.
func (s *S3Store) Save(ctx context.Context, inv types.Inventory) error {
	s.log.Info().Ctx(ctx).Str("location", s.Location()).Msg("saving state to s3 bucket")

	err := s.upload(ctx, inv)
	if err == nil {
		return nil
	}

	s.log.Warn().Ctx(ctx).Err(err).Str("fallback", s.fallback.Location()).Msg("attempting to save state locally instead")
	return s.fallback.Save(ctx, inv)
}

// upload stages the inventory in a temp file and streams it to the bucket.
func (s *S3Store) upload(ctx context.Context, inv types.Inventory) error {
	data, err := encodeInventory(inv)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "casper-state-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          tmp,
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.Location(), err)
	}
	return nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context) (types.Inventory, error) {
	inv, err := s.download(ctx)
	if err == nil {
		return inv, nil
	}

	s.log.Warn().Ctx(ctx).Err(err).Str("fallback", s.fallback.Location()).Msg("attempting to load state locally instead")
	return s.fallback.Load(ctx)
}

func (s *S3Store) download(ctx context.Context) (types.Inventory, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Location(), err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Location(), err)
	}
	return decodeInventory(data, s.Location())
}
