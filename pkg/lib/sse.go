package lib

import (
	"bufio"
	"io"
	"strings"
)

// sseMessage is a dispatched server sent event.
type sseMessage struct {
	event string
	id    string
	data  string
}

// sseReader reads server sent events, comments (keepalives) are skipped.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReader(r)}
}

// next returns the next event, io.EOF when the stream ends. A partial event at
// the end of the stream is discarded.
func (s *sseReader) next() (sseMessage, error) {
	var msg sseMessage
	var data []string
	hasFields := false

	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return sseMessage{}, io.EOF
			}
			return sseMessage{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !hasFields {
				continue
			}
			msg.data = strings.Join(data, "\n")
			if msg.event == "" {
				msg.event = "message"
			}
			return msg, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		hasFields = true
		switch field {
		case "event":
			msg.event = value
		case "id":
			msg.id = value
		case "data":
			data = append(data, value)
		}
	}
}
