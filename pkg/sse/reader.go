package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialBuffer = 64 * 1024
	maxLine       = 1024 * 1024
)

// Reader parses events from a source io.Reader. When built with
// NewTeeReader every raw line is also written, newline restored, to a
// destination writer before it is parsed.
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	current Event
	hasData bool
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader over src that copies every byte it consumes
// to dest. A nil dest copies nothing.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialBuffer), maxLine)

	return &Reader{
		scanner: scanner,
		dest:    dest,
	}
}

// Next blocks until a complete event is available and returns it. It
// returns nil, nil once the source is exhausted. An event left open by a
// stream that ends without a blank line is still returned.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if r.dest != nil {
			if _, err := io.WriteString(r.dest, line+"\n"); err != nil {
				return nil, err
			}
		}

		if line == "" {
			if r.hasData {
				return r.flush(), nil
			}
			// keep-alive
			continue
		}

		// comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasData {
		return r.flush(), nil
	}
	return nil, nil
}

// parseLine accumulates one "field:value" line into the current event. A
// single space after the colon is stripped; unknown fields, including
// "retry", are ignored.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *Reader) flush() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
