package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/quoter/pkg/testutils"
)

func TestNew(t *testing.T) {
	cfg := testutils.TestConfig()

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, s.engine)
	assert.NotNil(t, s.sweeper)
	assert.Equal(t, "0.0.0.0:8080", s.http.Addr)
}

func TestNew_AuthMisconfigured(t *testing.T) {
	cfg := testutils.TestConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.JWKSURL = "http://127.0.0.1:1/jwks.json"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildAgentCard(t *testing.T) {
	cfg := testutils.TestConfig()
	card := BuildAgentCard(cfg)

	assert.Equal(t, cfg.Agent.Name, card.Name)
	assert.Equal(t, cfg.Server.BaseURL, card.URL)
	assert.True(t, card.Capabilities.Streaming)
	assert.Equal(t, "http+json", card.PreferredTransport)
	require.Len(t, card.AdditionalInterfaces, 2)
	require.Len(t, card.Skills, 2)
	assert.Equal(t, "generate_quote", card.Skills[0].ID)
	assert.Equal(t, "random_quote", card.Skills[1].ID)
}
