package chatstream

import (
	"encoding/json"
	"strings"

	"github.com/jlsoftware/jlsite/pkg/llm"
)

const (
	// DataPrefix marks a data frame.
	DataPrefix = "data: "

	// CommentPrefix marks a comment frame, typically a keep-alive.
	CommentPrefix = ":"

	// DoneSentinel is the payload of the terminal data frame.
	DoneSentinel = "[DONE]"
)

// FrameKind classifies a single wire line.
type FrameKind int

const (
	// FrameIgnored covers blank lines, comments, non-data fields and data
	// frames that carry no text delta.
	FrameIgnored FrameKind = iota

	// FrameDelta is a data frame with a non-empty text delta.
	FrameDelta

	// FrameDone is the terminal sentinel frame.
	FrameDone

	// FrameIncomplete is a data frame whose payload is not valid JSON yet.
	FrameIncomplete
)

func (k FrameKind) String() string {
	switch k {
	case FrameIgnored:
		return "ignored"
	case FrameDelta:
		return "delta"
	case FrameDone:
		return "done"
	case FrameIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// ParseFrame classifies one line (without its trailing newline) and returns
// the text delta for FrameDelta lines.
func ParseFrame(line string) (FrameKind, string) {
	line = strings.TrimSuffix(line, "\r")

	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, CommentPrefix) {
		return FrameIgnored, ""
	}
	if !strings.HasPrefix(line, DataPrefix) {
		return FrameIgnored, ""
	}

	payload := strings.TrimSpace(line[len(DataPrefix):])
	if payload == DoneSentinel {
		return FrameDone, ""
	}

	if !json.Valid([]byte(payload)) {
		return FrameIncomplete, ""
	}

	// Well-formed JSON of the wrong shape is a control frame, not an error.
	var chunk llm.StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return FrameIgnored, ""
	}

	text, ok := chunk.DeltaText()
	if !ok || text == "" {
		return FrameIgnored, ""
	}

	return FrameDelta, text
}
