package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/appforge-ai/appforge/pkg/types"
)

// ndjsonWriter writes the bootstrap event stream: one JSON object per
// line, flushed after every write. The terminate sentinel is never
// serialized; it ends the stream.
type ndjsonWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	closed  bool
}

// newNDJSONWriter prepares the response for streaming and sends the
// headers immediately so the caller can begin reading.
func newNDJSONWriter(w http.ResponseWriter) (*ndjsonWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &ndjsonWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// WriteEvent serializes one stream event followed by a newline. Writing
// the terminate sentinel closes the stream instead of serializing it;
// any write after that is discarded.
func (n *ndjsonWriter) WriteEvent(ev types.StreamEvent) error {
	if n.closed {
		return nil
	}
	if ev.Terminate {
		n.closed = true
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := n.w.Write(append(data, '\n')); err != nil {
		return err
	}

	if err := n.rc.Flush(); err != nil {
		n.flusher.Flush()
	}
	return nil
}

// Closed reports whether the terminate sentinel has been written.
func (n *ndjsonWriter) Closed() bool { return n.closed }
