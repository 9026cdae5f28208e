package app

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feedback-triage/internal/core/llm"
	"github.com/lueurxax/feedback-triage/internal/core/ports/mocks"
	"github.com/lueurxax/feedback-triage/internal/platform/config"
)

func testApp(cfg *config.Config) (*App, *atomic.Int32) {
	var built atomic.Int32

	nop := zerolog.Nop()
	a := New(cfg, mocks.NewStore(), &nop)
	a.newProvider = func(cfg config.LLMConfig, logger *zerolog.Logger) (llm.Provider, error) {
		built.Add(1)

		return llm.New(cfg, logger)
	}

	return a, &built
}

func TestRunAllSharesOneProvider(t *testing.T) {
	a, built := testApp(&config.Config{LLM: config.LLMConfig{Provider: string(llm.ProviderMock)}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = a.RunAll(ctx) //nolint:errcheck // a canceled context stops both loops with a context error

	assert.Equal(t, int32(1), built.Load())
}

func TestRunAllRequiresProvider(t *testing.T) {
	a, built := testApp(&config.Config{AppEnv: "production"})

	err := a.RunAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm provider init")
	assert.Equal(t, int32(1), built.Load())
}
