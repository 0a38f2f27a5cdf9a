// Package chatstream turns a streamed chat completion body into a single,
// live-updating assistant message.
//
// Bytes arrive in chunks of arbitrary size. The Assembler buffers them until
// complete newline-terminated frames are available, extracts the text delta
// of each "data: " frame and folds the running text into one assistant
// message of a llm.Transcript:
//
//	chunk ─▶ lineBuffer ─▶ frame ─▶ accumulator ─▶ transcript[index] ─▶ UpdateFunc
//
// A frame is only decoded once its terminating newline has arrived, and a
// newline byte never occurs inside a multi-byte UTF-8 sequence, so characters
// split across chunk boundaries are always decoded whole.
package chatstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
)

const defaultReadSize = 4096

// Phase is the assembler's position in a streaming turn.
type Phase int

const (
	// AwaitingFirstDelta means no assistant message exists for this turn yet.
	AwaitingFirstDelta Phase = iota

	// Accumulating means the turn's assistant message exists and is updated
	// in place.
	Accumulating
)

func (p Phase) String() string {
	if p == Accumulating {
		return "accumulating"
	}
	return "awaiting-first-delta"
}

// UpdateFunc is called after every change to the turn's assistant message.
// index is the message's position in the transcript.
type UpdateFunc func(index int, msg llm.Message)

// State is the assembler's owned, per-turn state.
type State struct {
	lineBuffer  []byte
	accumulator strings.Builder
	phase       Phase
	index       int
	done        bool

	// retrying is set when the head of lineBuffer is a line that was pushed
	// back after failing to parse.
	retrying bool
}

// Assembler folds one streamed turn into a transcript. It is not safe for
// concurrent use; one goroutine feeds it.
type Assembler struct {
	state      State
	transcript *llm.Transcript
	onUpdate   UpdateFunc
	readSize   int
	logger     *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithUpdateFunc registers the re-render callback.
func WithUpdateFunc(fn UpdateFunc) Option {
	return func(a *Assembler) {
		a.onUpdate = fn
	}
}

// WithLogger sets the logger used for dropped-frame diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

// WithReadSize sets the buffer size Consume reads with.
func WithReadSize(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.readSize = n
		}
	}
}

// NewAssembler creates an Assembler for a single turn appended to t.
func NewAssembler(t *llm.Transcript, opts ...Option) *Assembler {
	a := &Assembler{
		transcript: t,
		readSize:   defaultReadSize,
		logger:     logger.Nop(),
		state:      State{index: -1},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write feeds a chunk of the stream. It never fails; malformed frames are
// recovered from rather than reported. After the sentinel frame, further
// bytes are accepted and discarded so the body can be drained.
func (a *Assembler) Write(p []byte) (int, error) {
	if a.state.done {
		return len(p), nil
	}

	a.state.lineBuffer = append(a.state.lineBuffer, p...)
	a.drain()
	return len(p), nil
}

// drain extracts and applies complete lines until the buffer holds no
// newline, the sentinel is seen, or a line has to be pushed back.
func (a *Assembler) drain() {
	for !a.state.done {
		i := bytes.IndexByte(a.state.lineBuffer, '\n')
		if i < 0 {
			return
		}

		line := string(a.state.lineBuffer[:i])
		a.state.lineBuffer = a.state.lineBuffer[i+1:]
		retrying := a.state.retrying
		a.state.retrying = false

		kind, text := ParseFrame(line)
		switch kind {
		case FrameDelta:
			a.apply(text)

		case FrameDone:
			a.state.done = true
			a.state.lineBuffer = nil

		case FrameIncomplete:
			if retrying {
				// Already given a second read; the newline bounds it, so more
				// bytes cannot complete it.
				a.logger.Debug("dropping malformed frame", "line", line)
				continue
			}
			a.pushBack(line)
			return
		}
	}
}

// pushBack restores an unconsumed line to the front of the buffer.
func (a *Assembler) pushBack(line string) {
	restored := make([]byte, 0, len(line)+1+len(a.state.lineBuffer))
	restored = append(restored, line...)
	restored = append(restored, '\n')
	restored = append(restored, a.state.lineBuffer...)

	a.state.lineBuffer = restored
	a.state.retrying = true
}

// apply folds a delta into the accumulator and the transcript.
func (a *Assembler) apply(text string) {
	a.state.accumulator.WriteString(text)
	content := a.state.accumulator.String()

	var msg llm.Message
	switch a.state.phase {
	case AwaitingFirstDelta:
		msg = llm.NewAssistantMessage(content)
		a.state.index = a.transcript.Append(msg)
		a.state.phase = Accumulating

	case Accumulating:
		msg, _ = a.transcript.UpdateContent(a.state.index, content)
	}

	if a.onUpdate != nil {
		a.onUpdate(a.state.index, msg)
	}
}

// Finish handles a final frame that was not newline terminated. Incomplete
// data at this point is discarded.
func (a *Assembler) Finish() {
	if a.state.done || len(a.state.lineBuffer) == 0 {
		a.state.lineBuffer = nil
		return
	}

	if a.state.lineBuffer[len(a.state.lineBuffer)-1] != '\n' {
		a.state.lineBuffer = append(a.state.lineBuffer, '\n')
	}

	// No more bytes are coming, so every remaining line gets exactly one
	// attempt.
	for !a.state.done && bytes.IndexByte(a.state.lineBuffer, '\n') >= 0 {
		a.state.retrying = true
		a.drain()
	}
	a.state.lineBuffer = nil
}

// Consume reads r until EOF, feeding every chunk to the assembler. It returns
// nil on a clean end of stream (with or without the sentinel). A read error
// or context cancellation is returned as is; text already applied to the
// transcript is left in place.
func (a *Assembler) Consume(ctx context.Context, r io.Reader) error {
	buf := make([]byte, a.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			_, _ = a.Write(buf[:n])
		}

		if errors.Is(err, io.EOF) {
			a.Finish()
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// Content returns the assistant text assembled so far.
func (a *Assembler) Content() string {
	return a.state.accumulator.String()
}

// Phase returns the current phase.
func (a *Assembler) Phase() Phase {
	return a.state.phase
}

// Done reports whether the sentinel frame has been seen.
func (a *Assembler) Done() bool {
	return a.state.done
}

// Index returns the transcript index of this turn's assistant message. ok is
// false until the first delta arrives.
func (a *Assembler) Index() (index int, ok bool) {
	return a.state.index, a.state.phase == Accumulating
}

// Buffered returns the number of bytes held waiting for a newline.
func (a *Assembler) Buffered() int {
	return len(a.state.lineBuffer)
}
