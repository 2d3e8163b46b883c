package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/acme/topics/orders", TopicResourceName("acme", "orders"))
	assert.Equal(t, "projects/other/topics/orders", TopicResourceName("acme", "projects/other/topics/orders"))
	assert.Equal(t, "", TopicResourceName("acme", "  "))
	assert.Equal(t, "", TopicResourceName("", "orders"))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	_, err := c.Publish(ctx, "orders", []byte(`{}`), nil)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, c.Ping(ctx), ErrNotInitialized)
	assert.NoError(t, c.Close())
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestCredentialOptions(t *testing.T) {
	assert.Empty(t, credentialOptions(config.GCPConfig{}))
	assert.Len(t, credentialOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, credentialOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp/key.json"}), 1)
	assert.Len(t, credentialOptions(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/etc/gcp/key.json"}), 1)
}
