// Package transport exposes the agent over its wire bindings: synchronous
// HTTP+JSON, Server-Sent Events streaming and a bidirectional WebSocket.
// All bindings are views over the same task engine; none of them has
// semantics of its own.
package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/auth"
	"github.com/kadirpekel/quoter/pkg/task"
)

// Gateway is the HTTP surface of the agent.
type Gateway struct {
	engine    *task.Engine
	card      a2a.AgentCard
	validator *auth.JWTValidator
	metrics   http.Handler
}

// GatewayOption configures the gateway.
type GatewayOption func(*Gateway)

// WithAuth enables bearer authentication on the task endpoints. The agent
// card and metrics stay public.
func WithAuth(validator *auth.JWTValidator) GatewayOption {
	return func(g *Gateway) {
		g.validator = validator
	}
}

// WithMetricsHandler mounts a metrics scrape endpoint at /metrics.
func WithMetricsHandler(handler http.Handler) GatewayOption {
	return func(g *Gateway) {
		g.metrics = handler
	}
}

// NewGateway creates a gateway over the engine.
func NewGateway(engine *task.Engine, card a2a.AgentCard, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		engine: engine,
		card:   card,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler builds the routing tree.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	// Discovery and scrape endpoints are always public.
	r.Get("/.well-known/agent.json", g.handleAgentCard)
	if g.metrics != nil {
		r.Handle("/metrics", g.metrics)
	}

	r.Group(func(r chi.Router) {
		if g.validator != nil {
			r.Use(g.validator.HTTPMiddleware)
		}

		r.Post("/v1/message:send", g.handleSendMessage)
		r.Post("/v1/message:stream", g.handleStreamMessage)
		r.Get("/v1/tasks/{id}", g.handleGetTask)
		r.Post("/v1/tasks/{id}:cancel", g.handleCancelTask)
		r.Get("/v1/tasks/{id}:subscribe", g.handleSubscribeTask)
		r.Get("/ws", g.handleWebSocket)
	})

	return r
}

func (g *Gateway) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.card)
}

// handleSendMessage is the synchronous binding: it blocks until the task
// reaches a terminal state and returns the full task.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	params, err := decodeSendParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	t, err := g.engine.SubmitAndWait(r.Context(), params.Message)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a2a.SendMessageResponse{Task: t})
}

func (g *Gateway) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := g.engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (g *Gateway) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var params a2a.TaskCancelParams
	if r.Body != nil {
		// The reason body is optional.
		_ = json.NewDecoder(r.Body).Decode(&params)
	}

	canceled, err := g.engine.Cancel(r.Context(), taskID, params.Reason)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a2a.CancelResponse{TaskID: taskID, Canceled: canceled})
}

func decodeSendParams(r *http.Request) (a2a.MessageSendParams, error) {
	var params a2a.MessageSendParams

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return params, errors.New("failed to read request body")
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, &params); err != nil {
		return params, errors.New("invalid JSON body")
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// writeTaskError maps engine errors to HTTP status codes.
func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, task.ErrUnknownTask):
		writeError(w, http.StatusNotFound, "task_not_found", err.Error())
	case errors.Is(err, task.ErrTerminalState):
		writeError(w, http.StatusConflict, "task_terminal", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
