package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/jlsoftware/jlsite/pkg/chatstream"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
)

// DefaultGreeting seeds a new session's transcript. It is shown to the user
// but never sent upstream.
const DefaultGreeting = "Hello! 👋 I'm JL Assistant. How can I help you today? " +
	"Feel free to ask about our services, pricing, or anything else!"

// Notification is the single user-facing message produced for a failed send.
type Notification struct {
	Title       string
	Description string
	Err         error
}

func connectionErrorNotification(err error) Notification {
	return Notification{
		Title:       "Connection Error",
		Description: "Failed to get response. Please try again.",
		Err:         err,
	}
}

// Handler receives session events. Both methods are called from the
// goroutine running Send.
type Handler interface {
	// OnUpdate is called after every change to the streaming assistant
	// message.
	OnUpdate(index int, msg llm.Message)

	// OnError is called once for each failed send.
	OnError(n Notification)
}

// HandlerFuncs adapts plain functions to a Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Update func(index int, msg llm.Message)
	Error  func(n Notification)
}

func (h HandlerFuncs) OnUpdate(index int, msg llm.Message) {
	if h.Update != nil {
		h.Update(index, msg)
	}
}

func (h HandlerFuncs) OnError(n Notification) {
	if h.Error != nil {
		h.Error(n)
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHandler sets the session's event handler.
func WithHandler(h Handler) SessionOption {
	return func(s *Session) {
		s.handler = h
	}
}

// WithGreeting overrides the greeting. An empty greeting starts the
// transcript empty.
func WithGreeting(greeting string) SessionOption {
	return func(s *Session) {
		s.greeting = greeting
	}
}

// WithSupersede makes Send cancel an in-flight send instead of rejecting the
// new one with ErrSendInProgress.
func WithSupersede(supersede bool) SessionOption {
	return func(s *Session) {
		s.supersede = supersede
	}
}

// WithHistory resumes an earlier conversation. The greeting is kept in front
// of it so Reset still returns to the greeting.
func WithHistory(msgs []llm.Message) SessionOption {
	return func(s *Session) {
		s.history = msgs
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// Session is one chat widget instance. It owns the transcript and allows a
// single in-flight send at a time.
type Session struct {
	streamer   Streamer
	transcript *llm.Transcript
	handler    Handler
	logger     *slog.Logger
	greeting   string
	supersede  bool
	history    []llm.Message

	mu      sync.Mutex
	cancel  context.CancelFunc
	running chan struct{}
	closed  bool
}

// NewSession creates a session that sends through streamer.
func NewSession(streamer Streamer, opts ...SessionOption) *Session {
	s := &Session{
		streamer: streamer,
		handler:  HandlerFuncs{},
		logger:   logger.Nop(),
		greeting: DefaultGreeting,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.transcript = s.newTranscript()
	return s
}

func (s *Session) newTranscript() *llm.Transcript {
	if s.greeting == "" {
		return llm.NewTranscript(s.history...)
	}

	greeting := llm.NewAssistantMessage(s.greeting)
	if len(s.history) > 0 && s.history[0] == greeting {
		return llm.NewTranscript(s.history...)
	}
	return llm.NewTranscript(append([]llm.Message{greeting}, s.history...)...)
}

// Send appends the user's message and streams the assistant's reply into the
// transcript. Failures are reported to the Handler as one notification and
// returned. Cancellation through Cancel, Close or a superseding send is
// returned but not notified.
func (s *Session) Send(ctx context.Context, input string) error {
	content := strings.TrimSpace(input)
	if content == "" {
		return ErrEmptyMessage
	}

	turnCtx, finish, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer finish()

	s.transcript.Append(llm.NewUserMessage(content))

	err = s.stream(turnCtx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		s.logger.Debug("chat send cancelled")
		return err
	}

	s.logger.Error("chat error", "error", err)
	s.handler.OnError(connectionErrorNotification(err))
	return err
}

// stream runs one turn. Setup failures leave the transcript without an
// assistant message; stream failures leave the partial reply in place.
func (s *Session) stream(ctx context.Context) error {
	body, err := s.streamer.Stream(ctx, s.transcript.Upstream())
	if err != nil {
		return err
	}
	defer body.Close()

	asm := chatstream.NewAssembler(s.transcript,
		chatstream.WithUpdateFunc(s.handler.OnUpdate),
		chatstream.WithLogger(s.logger),
	)

	if err := asm.Consume(ctx, body); err != nil {
		return &StreamError{Err: err, Partial: asm.Content()}
	}

	s.logger.Debug("chat reply complete",
		"chars", len(asm.Content()),
		"sentinel", asm.Done(),
	)
	return nil
}

// begin claims the in-flight slot and returns the turn context along with a
// func that releases the slot.
func (s *Session) begin(ctx context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, ErrSessionClosed
	}

	if s.running != nil {
		if !s.supersede {
			s.mu.Unlock()
			return nil, nil, ErrSendInProgress
		}

		cancel, running := s.cancel, s.running
		s.mu.Unlock()
		cancel()
		<-running
		s.mu.Lock()

		if s.closed {
			s.mu.Unlock()
			return nil, nil, ErrSessionClosed
		}
		if s.running != nil {
			s.mu.Unlock()
			return nil, nil, ErrSendInProgress
		}
	}

	turnCtx, cancel := context.WithCancel(ctx)
	running := make(chan struct{})
	s.cancel = cancel
	s.running = running
	s.mu.Unlock()

	finish := func() {
		cancel()
		s.mu.Lock()
		if s.running == running {
			s.running = nil
			s.cancel = nil
		}
		s.mu.Unlock()
		close(running)
	}

	return turnCtx, finish, nil
}

// Busy reports whether a send is streaming.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != nil
}

// Cancel aborts the in-flight send, if any, without waiting for it.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Close cancels any in-flight send, waits for it to release the response
// body, and rejects further sends.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	cancel, running := s.cancel, s.running
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-running
	}
	return nil
}

// Reset starts a fresh conversation. It fails while a send is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running != nil {
		return ErrSendInProgress
	}
	if s.greeting == "" {
		s.transcript.Truncate(0)
	} else {
		s.transcript.Truncate(1)
	}
	return nil
}

// Messages returns a snapshot of the transcript.
func (s *Session) Messages() []llm.Message {
	return s.transcript.Messages()
}
