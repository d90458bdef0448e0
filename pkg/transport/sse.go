package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/task"
)

// handleStreamMessage submits a message and streams the task's lifecycle
// events over SSE until the terminal event.
func (g *Gateway) handleStreamMessage(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendSSEError(w, "Streaming not supported")
		return
	}

	params, err := decodeSendParams(r)
	if err != nil {
		sendSSEError(w, err.Error())
		return
	}

	t, err := g.engine.Submit(r.Context(), params.Message)
	if err != nil {
		sendSSEError(w, err.Error())
		return
	}

	sub, err := g.engine.Subscribe(t.ID)
	if err != nil {
		sendSSEError(w, err.Error())
		return
	}
	defer g.engine.Unsubscribe(sub)

	streamEvents(w, flusher, r, sub)
}

// handleSubscribeTask attaches to an existing task's event stream. Late
// subscribers get the buffered replay window first.
func (g *Gateway) handleSubscribeTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	sub, err := g.engine.Subscribe(taskID)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	defer g.engine.Unsubscribe(sub)

	setSSEHeaders(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendSSEError(w, "Streaming not supported")
		return
	}

	streamEvents(w, flusher, r, sub)
}

// streamEvents pumps events to the client until the channel closes (terminal
// event delivered or subscriber detached) or the client disconnects.
func streamEvents(w http.ResponseWriter, flusher http.Flusher, r *http.Request, sub *task.Subscriber) {
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				fmt.Fprintf(w, "event: done\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := sendSSEEvent(w, flusher, event); err != nil {
				slog.Debug("Failed to send SSE event", "task_id", sub.TaskID(), "error", err)
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event a2a.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func sendSSEError(w http.ResponseWriter, message string) {
	data, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
