package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edeas123/aws-terraform-casper/types"
)

const instanceShow = `# aws_instance.web:
resource "aws_instance" "web" {
    ami                          = "ami-0c55b159cbfafe1f0"
    arn                          = "arn:aws:ec2:us-east-1:123456789012:instance/i-0abc123"
    id                           = "i-0abc123"
    instance_type                = "t3.micro"
    tags                         = {
        "Name" = "web"
    }

    root_block_device {
        delete_on_termination = true
        id                    = "vol-0def456"
    }
}
`

const nestedFirstShow = `# aws_security_group.db:
resource "aws_security_group" "db" {
    ingress {
        id = "nested"
    }
    id     = "sg-0123"
    name   = "db"
}
`

type mockSource struct {
	FetchFunc func(ctx context.Context, tag string) (types.LiveResources, error)
}

func (m *mockSource) Fetch(ctx context.Context, tag string) (types.LiveResources, error) {
	return m.FetchFunc(ctx, tag)
}

func TestFieldHandler_ExtractID(t *testing.T) {
	h := NewFieldHandler(TagInstance, "id")

	id, ok := h.ExtractID(instanceShow)
	require.True(t, ok)
	assert.Equal(t, "i-0abc123", id)
}

func TestFieldHandler_LeastIndentedWins(t *testing.T) {
	h := NewFieldHandler(TagSecurityGroup, "id")

	id, ok := h.ExtractID(nestedFirstShow)
	require.True(t, ok)
	assert.Equal(t, "sg-0123", id)
}

func TestFieldHandler_ExtractIDVariants(t *testing.T) {
	tests := []struct {
		name  string
		field string
		text  string
		want  string
		ok    bool
	}{
		{"unquoted", "name", "name = web-asg\n", "web-asg", true},
		{"tabs and trailing space", "name", "\tname\t=\t\"web\"  \n", "web", true},
		{"crlf", "name", "  name = \"web\"\r\n", "web", true},
		{"no spaces", "identifier", "identifier=\"prod-db\"", "prod-db", true},
		{"prefix field ignored", "id", "  identifier = \"prod-db\"\n", "", false},
		{"suffix field ignored", "id", "  key_id = \"k-1\"\n", "", false},
		{"missing", "spot_instance_id", instanceShow, "", false},
		{"empty value", "name", "name = \"\"\n", "", false},
		{"url value", "id", "id = \"https://sqs.us-east-1.amazonaws.com/123/jobs\"", "https://sqs.us-east-1.amazonaws.com/123/jobs", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFieldHandler("aws_test", tt.field)
			got, ok := h.ExtractID(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_LookupRemaps(t *testing.T) {
	r := New()

	tests := []struct {
		group string
		tag   string
	}{
		{"aws_instance", TagInstance},
		{"aws_spot_instance_request", TagInstance},
		{"aws_lb", TagALB},
		{"aws_alb", TagALB},
		{"aws_db_instance", TagDBInstance},
		{" AWS-Security-Group ", TagSecurityGroup},
	}

	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			h, ok := r.Lookup(tt.group)
			require.True(t, ok)
			assert.Equal(t, tt.tag, h.Tag())
		})
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := New()

	h, ok := r.Lookup("aws_unknown_thing")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestRegistry_SpotRequestField(t *testing.T) {
	r := New()

	h, ok := r.Lookup("aws_spot_instance_request")
	require.True(t, ok)

	id, ok := h.ExtractID("    id               = \"sir-123\"\n    spot_instance_id = \"i-0999\"\n")
	require.True(t, ok)
	assert.Equal(t, "i-0999", id)
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := New()
	r.Register("aws_instance", NewFieldHandler(TagInstance, "arn"))

	h, ok := r.Lookup("aws_instance")
	require.True(t, ok)
	id, ok := h.ExtractID(instanceShow)
	require.True(t, ok)
	assert.Contains(t, id, "arn:aws:ec2")
}

func TestRegistry_Groups(t *testing.T) {
	groups := New().Groups()

	assert.Contains(t, groups, "aws_lb")
	assert.Contains(t, groups, "aws_memorydb_cluster")
	assert.IsNonDecreasing(t, groups)
}

func TestFieldHandler_FetchLive(t *testing.T) {
	src := &mockSource{
		FetchFunc: func(_ context.Context, tag string) (types.LiveResources, error) {
			assert.Equal(t, TagALB, tag)
			return types.LiveResources{"web": nil}, nil
		},
	}

	h, ok := New().Lookup("aws_lb")
	require.True(t, ok)

	live, err := h.FetchLive(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, live, "web")
}

func TestFieldHandler_FetchLiveError(t *testing.T) {
	src := &mockSource{
		FetchFunc: func(context.Context, string) (types.LiveResources, error) {
			return nil, errors.New("throttled")
		},
	}

	_, err := NewFieldHandler(TagInstance, "id").FetchLive(context.Background(), src)
	assert.EqualError(t, err, "throttled")
}
