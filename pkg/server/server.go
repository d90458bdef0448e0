// Package server assembles the agent from its parts: backend provider,
// generator, task engine, sweeper and the HTTP gateway. It owns process
// lifecycle: startup, signal handling and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/auth"
	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/generator"
	"github.com/kadirpekel/quoter/pkg/llms"
	"github.com/kadirpekel/quoter/pkg/observability"
	"github.com/kadirpekel/quoter/pkg/task"
	"github.com/kadirpekel/quoter/pkg/transport"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled agent process.
type Server struct {
	cfg      *config.Config
	provider llms.Provider
	engine   *task.Engine
	sweeper  *task.Sweeper
	recorder observability.Recorder
	http     *http.Server
}

// New wires up all components from configuration.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	var recorder observability.Recorder = observability.NoopRecorder{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metrics, err := observability.InitMetrics(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		recorder = metrics
		metricsHandler = observability.Handler()
	}

	provider := llms.NewOpenAIProvider(cfg.LLM, llms.ProviderOptions{
		MaxRetries:      cfg.Generation.MaxRetries,
		RetryBaseDelay:  cfg.Generation.RetryBaseDelay,
		RetryMultiplier: cfg.Generation.RetryMultiplier,
		Observer: func(attempt int, latency time.Duration, err error) {
			outcome := observability.OutcomeSuccess
			if err != nil {
				outcome = observability.OutcomeError
			}
			recorder.RecordBackendCall(context.Background(), attempt, latency, outcome)
		},
	})

	gen := generator.New(provider, cfg.Generation, recorder)
	registry := task.NewRegistry(cfg.Tasks)
	engine := task.NewEngine(registry, gen, recorder)
	sweeper := task.NewSweeper(registry, cfg.Tasks)

	gatewayOpts := []transport.GatewayOption{}
	if metricsHandler != nil {
		gatewayOpts = append(gatewayOpts, transport.WithMetricsHandler(metricsHandler))
	}
	if cfg.Auth.IsEnabled() {
		validator, err := auth.NewJWTValidator(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		gatewayOpts = append(gatewayOpts, transport.WithAuth(validator))
		slog.Info("Bearer authentication enabled", "jwks_url", cfg.Auth.JWKSURL)
	}

	gateway := transport.NewGateway(engine, BuildAgentCard(cfg), gatewayOpts...)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg:      cfg,
		provider: provider,
		engine:   engine,
		sweeper:  sweeper,
		recorder: recorder,
		http: &http.Server{
			Addr:    addr,
			Handler: gateway.Handler(),
		},
	}, nil
}

// Run starts the listener and sweeper and blocks until the context is
// canceled or the listener fails. Signal handling belongs to the caller.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.sweeper.Run(ctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("Agent listening",
			"addr", s.http.Addr,
			"agent", s.cfg.Agent.Name,
			"model", s.provider.ModelName())
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return s.provider.Close()
	})

	return g.Wait()
}

// BuildAgentCard derives the published agent card from configuration. The
// card advertises both quote skills and all three transport bindings.
func BuildAgentCard(cfg *config.Config) a2a.AgentCard {
	baseURL := cfg.Server.BaseURL

	return a2a.AgentCard{
		Name:        cfg.Agent.Name,
		URL:         baseURL,
		Version:     cfg.Agent.Version,
		Description: cfg.Agent.Description,
		Provider: &a2a.AgentProvider{
			Name: cfg.Agent.Name,
		},
		PreferredTransport: "http+json",
		AdditionalInterfaces: []a2a.AgentInterface{
			{Transport: "sse", URL: baseURL + "/v1/message:stream"},
			{Transport: "websocket", URL: baseURL + "/ws"},
		},
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		Skills: []a2a.AgentSkill{
			{
				ID:          "generate_quote",
				Name:        "Generate Quote",
				Description: "Generate a random inspirational quote on a given topic or theme",
				Tags:        []string{"quotes", "inspiration", "motivation", "wisdom"},
				Examples: []string{
					"Generate a quote about success",
					"Give me an inspirational quote about perseverance",
					"Create a motivational quote about teamwork",
				},
			},
			{
				ID:          "random_quote",
				Name:        "Random Quote",
				Description: "Generate a completely random inspirational quote on any topic",
				Tags:        []string{"quotes", "inspiration", "motivation", "random", "surprise"},
				Examples: []string{
					"Give me a random quote",
					"Surprise me with a quote",
					"Random inspirational quote",
				},
			},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}
