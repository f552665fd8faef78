package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SSE event types emitted by the chat stream endpoint.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// ChunkPayload carries one streamed fragment of the answer.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload signals normal stream completion.
type DonePayload struct {
	Length int `json:"length"`
}

// ErrorPayload reports a stream-level failure.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

// sseHeaders prepares the response for server-sent events.
// X-Accel-Buffering disables proxy buffering so chunks reach the
// client as they are produced.
func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
