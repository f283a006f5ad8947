package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(w io.Writer, flusher http.Flusher) sseWriter {
	return sseWriter{w: w, flusher: flusher}
}

// event writes a named event, data is encoded as a single JSON line.
func (s sseWriter) event(name, id string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not encode event data: %w", err)
	}

	if id != "" {
		_, err = fmt.Fprintf(s.w, "event: %s\nid: %s\ndata: %s\n\n", name, id, b)
	} else {
		_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, b)
	}
	if err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// comment writes a comment line, clients ignore them.
func (s sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
