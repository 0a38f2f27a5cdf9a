// Package sse is a small SSE (Server-Sent Events) tee reader used by the chat
// relay. It parses events from the upstream completion stream while copying
// the raw bytes unchanged to the downstream client.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneData is the data payload of the OpenAI-style terminal event.
const DoneData = "[DONE]"

// Event is one parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data joins all "data:" lines of the event with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the terminal "[DONE]" marker.
func (e *Event) IsDone() bool {
	return e != nil && e.Data == DoneData
}
