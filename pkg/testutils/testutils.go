// Package testutils provides testing utilities shared across the agent's
// packages.
package testutils

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/llms"
)

// TestConfig returns a minimal valid configuration for testing.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Agent.Name = "Test Quoter"
	cfg.Tasks.GracePeriod = 50 * time.Millisecond
	cfg.Tasks.SweepInterval = 10 * time.Millisecond
	return cfg
}

// TestContext returns a context with a deadline suitable for unit tests.
func TestContext(t interface{ Cleanup(func()) }) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MockBackend implements llms.Provider for testing.
type MockBackend struct {
	// CompleteFunc overrides the default canned response.
	CompleteFunc func(ctx context.Context, req llms.CompletionRequest) (string, error)

	// CompleteErr, when set, is returned by every Complete call.
	CompleteErr error

	// CompleteDelay simulates a slow backend.
	CompleteDelay time.Duration

	// Calls counts Complete invocations.
	Calls atomic.Int32
}

// NewMockBackend creates a mock backend with a canned successful response.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) Complete(ctx context.Context, req llms.CompletionRequest) (string, error) {
	m.Calls.Add(1)

	if m.CompleteDelay > 0 {
		select {
		case <-time.After(m.CompleteDelay):
		case <-ctx.Done():
			return "", llms.NewTransientError("canceled", ctx.Err())
		}
	}

	if m.CompleteErr != nil {
		return "", m.CompleteErr
	}

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	return `"Mock wisdom fits every topic." - Anonymous`, nil
}

func (m *MockBackend) ModelName() string {
	return "mock-model"
}

func (m *MockBackend) Close() error {
	return nil
}
