package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// TeeReader reads SSE events from a source while writing every raw byte,
// line endings included, to a destination.
//
// ┌────────────┐    ┌──────────────────┐    ┌─────────────────┐
// │  upstream  │───▶│ TeeReader.Next() │───▶│ downstream pipe │
// └────────────┘    └──────────────────┘    └─────────────────┘
//
//	│
//	▼
//	Event
type TeeReader struct {
	src  *bufio.Reader
	dest io.Writer

	current Event
	hasData bool
}

// NewTeeReader returns a TeeReader that parses src and copies it to dest.
// dest is typically the write side of an io.Pipe feeding an HTTP response.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{
		src:  bufio.NewReaderSize(src, 64*1024),
		dest: dest,
	}
}

// Next blocks until a complete event is available and returns it. It
// returns nil, nil once the source is exhausted. A final event without a
// trailing blank line is still returned.
func (r *TeeReader) Next() (*Event, error) {
	for {
		raw, readErr := r.src.ReadString('\n')
		if raw != "" {
			if _, err := io.WriteString(r.dest, raw); err != nil {
				return nil, err
			}
		}

		if raw != "" {
			line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
			if ev := r.feed(line); ev != nil {
				return ev, nil
			}
		}

		if readErr == nil {
			continue
		}
		if !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}

		if r.hasData {
			return r.take(), nil
		}
		return nil, nil
	}
}

// feed processes one line without its terminator and returns an event when
// the line completes one.
func (r *TeeReader) feed(line string) *Event {
	switch {
	case line == "":
		if r.hasData {
			return r.take()
		}
		return nil
	case strings.HasPrefix(line, ":"):
		return nil
	}

	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

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
	default:
		// retry and unknown fields are ignored.
	}
	return nil
}

func (r *TeeReader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}

// Drain copies whatever remains in the source to the destination without
// parsing it.
func (r *TeeReader) Drain() error {
	_, err := io.Copy(r.dest, r.src)
	return err
}
