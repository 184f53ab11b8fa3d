package llm

import (
	"errors"
	"io"
	"testing"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "bard", APIKey: "key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
	}{
		{"anthropic", "anthropic"},
		{"openai", "openai"},
		{"default provider", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(Config{Provider: tt.provider})
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrMissingConfig))
		})
	}
}

func TestNewClient_ProviderNameIsCaseInsensitive(t *testing.T) {
	client, err := NewClient(Config{Provider: "OpenAI", APIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_ClientsStopTheirRateLimiter(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai"} {
		t.Run(provider, func(t *testing.T) {
			client, err := NewClient(Config{Provider: provider, APIKey: "key"})
			require.NoError(t, err)

			closer, ok := client.(io.Closer)
			require.True(t, ok, "every provider owns a rate limiter and must release it")
			assert.NoError(t, closer.Close())
		})
	}
}
