package chat_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/chat"
	"github.com/jlsoftware/jlsite/pkg/llm"
)

// fakeStreamer returns canned bodies. When hold is set the body stays open
// after the canned bytes until the request context is cancelled.
type fakeStreamer struct {
	mu       sync.Mutex
	body     string
	err      error
	hold     bool
	received [][]llm.Message
	started  chan struct{}
}

func (f *fakeStreamer) Stream(ctx context.Context, messages []llm.Message) (io.ReadCloser, error) {
	f.mu.Lock()
	f.received = append(f.received, messages)
	f.mu.Unlock()

	if f.started != nil {
		defer func() { f.started <- struct{}{} }()
	}
	if f.err != nil {
		return nil, f.err
	}
	if !f.hold {
		return io.NopCloser(strings.NewReader(f.body)), nil
	}

	pr, pw := io.Pipe()
	go func() {
		_, _ = io.WriteString(pw, f.body)
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func (f *fakeStreamer) calls() [][]llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

type recorder struct {
	mu            sync.Mutex
	updates       []llm.Message
	notifications []chat.Notification
}

func (r *recorder) OnUpdate(_ int, msg llm.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, msg)
}

func (r *recorder) OnError(n chat.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recorder) Notifications() []chat.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Notification(nil), r.notifications...)
}

func deltaFrame(text string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", text)
}

var _ = Describe("Session", func() {
	var rec *recorder

	BeforeEach(func() {
		rec = &recorder{}
	})

	It("starts with the greeting", func() {
		s := chat.NewSession(&fakeStreamer{})
		Expect(s.Messages()).To(Equal([]llm.Message{llm.NewAssistantMessage(chat.DefaultGreeting)}))
	})

	It("streams a reply into a single assistant message", func() {
		streamer := &fakeStreamer{body: deltaFrame("Hel") + deltaFrame("lo") + "data: [DONE]\n\n"}
		s := chat.NewSession(streamer, chat.WithHandler(rec))

		Expect(s.Send(context.Background(), "  hi  ")).To(Succeed())

		Expect(s.Messages()).To(Equal([]llm.Message{
			llm.NewAssistantMessage(chat.DefaultGreeting),
			llm.NewUserMessage("hi"),
			llm.NewAssistantMessage("Hello"),
		}))
		Expect(rec.updates).To(HaveLen(2))
		Expect(rec.updates[1].Content).To(Equal("Hello"))
		Expect(rec.Notifications()).To(BeEmpty())
	})

	It("does not send the greeting upstream", func() {
		streamer := &fakeStreamer{body: deltaFrame("a")}
		s := chat.NewSession(streamer)

		Expect(s.Send(context.Background(), "one")).To(Succeed())
		Expect(s.Send(context.Background(), "two")).To(Succeed())

		calls := streamer.calls()
		Expect(calls).To(HaveLen(2))
		Expect(calls[0]).To(Equal([]llm.Message{llm.NewUserMessage("one")}))
		Expect(calls[1]).To(Equal([]llm.Message{
			llm.NewUserMessage("one"),
			llm.NewAssistantMessage("a"),
			llm.NewUserMessage("two"),
		}))
	})

	It("rejects blank input", func() {
		streamer := &fakeStreamer{}
		s := chat.NewSession(streamer)

		Expect(s.Send(context.Background(), " \n\t")).To(MatchError(chat.ErrEmptyMessage))
		Expect(streamer.calls()).To(BeEmpty())
		Expect(s.Messages()).To(HaveLen(1))
	})

	It("notifies once and appends no assistant message on a setup failure", func() {
		streamer := &fakeStreamer{err: &chat.StatusError{StatusCode: 500, Message: "rate limited"}}
		s := chat.NewSession(streamer, chat.WithHandler(rec))

		err := s.Send(context.Background(), "hi")
		Expect(err).To(MatchError("rate limited"))

		Expect(s.Messages()).To(Equal([]llm.Message{
			llm.NewAssistantMessage(chat.DefaultGreeting),
			llm.NewUserMessage("hi"),
		}))
		Expect(rec.Notifications()).To(HaveLen(1))
		n := rec.Notifications()[0]
		Expect(n.Title).To(Equal("Connection Error"))
		Expect(n.Description).To(Equal("Failed to get response. Please try again."))
		Expect(n.Err).To(MatchError("rate limited"))
	})

	It("keeps partial text when the connection drops mid-stream", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, deltaFrame("Part"))
			w.(http.Flusher).Flush()
			panic(http.ErrAbortHandler)
		}))
		defer server.Close()

		s := chat.NewSession(newTestClient(server.URL), chat.WithHandler(rec))
		err := s.Send(context.Background(), "hi")
		Expect(err).To(HaveOccurred())

		var streamErr *chat.StreamError
		Expect(errors.As(err, &streamErr)).To(BeTrue())
		Expect(streamErr.Partial).To(Equal("Part"))
		Expect(chat.IsSetupFailure(err)).To(BeFalse())

		msgs := s.Messages()
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[2]).To(Equal(llm.NewAssistantMessage("Part")))
		Expect(rec.Notifications()).To(HaveLen(1))
	})

	It("ignores a second send while one is in flight", func() {
		streamer := &fakeStreamer{body: deltaFrame("slow"), hold: true, started: make(chan struct{}, 1)}
		s := chat.NewSession(streamer, chat.WithHandler(rec))

		done := make(chan error, 1)
		go func() { done <- s.Send(context.Background(), "first") }()
		Eventually(streamer.started).Should(Receive())
		Eventually(s.Busy).Should(BeTrue())

		Expect(s.Send(context.Background(), "second")).To(MatchError(chat.ErrSendInProgress))
		Expect(s.Reset()).To(MatchError(chat.ErrSendInProgress))

		s.Cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(s.Busy()).To(BeFalse())
		Expect(rec.Notifications()).To(BeEmpty())
	})

	It("cancels the in-flight send on Close without notifying", func() {
		streamer := &fakeStreamer{body: deltaFrame("partial"), hold: true, started: make(chan struct{}, 1)}
		s := chat.NewSession(streamer, chat.WithHandler(rec))

		done := make(chan error, 1)
		go func() { done <- s.Send(context.Background(), "hi") }()
		Eventually(streamer.started).Should(Receive())

		Expect(s.Close()).To(Succeed())
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Expect(rec.Notifications()).To(BeEmpty())

		Expect(s.Send(context.Background(), "again")).To(MatchError(chat.ErrSessionClosed))
	})

	It("supersedes the in-flight send when configured", func() {
		streamer := &fakeStreamer{body: deltaFrame("old"), hold: true, started: make(chan struct{}, 2)}
		s := chat.NewSession(streamer, chat.WithHandler(rec), chat.WithSupersede(true))

		first := make(chan error, 1)
		go func() { first <- s.Send(context.Background(), "first") }()
		Eventually(streamer.started).Should(Receive())

		second := make(chan error, 1)
		go func() { second <- s.Send(context.Background(), "second") }()

		Eventually(first).Should(Receive(MatchError(context.Canceled)))
		Eventually(streamer.started).Should(Receive())
		Eventually(func() int { return len(streamer.calls()) }).Should(Equal(2))

		s.Cancel()
		Eventually(second, time.Second).Should(Receive(MatchError(context.Canceled)))
		Expect(rec.Notifications()).To(BeEmpty())
	})

	It("resets to the greeting", func() {
		s := chat.NewSession(&fakeStreamer{body: deltaFrame("x")})
		Expect(s.Send(context.Background(), "hi")).To(Succeed())
		Expect(s.Messages()).To(HaveLen(3))

		Expect(s.Reset()).To(Succeed())
		Expect(s.Messages()).To(Equal([]llm.Message{llm.NewAssistantMessage(chat.DefaultGreeting)}))
	})

	It("starts empty without a greeting", func() {
		s := chat.NewSession(&fakeStreamer{body: deltaFrame("x")}, chat.WithGreeting(""))
		Expect(s.Messages()).To(BeEmpty())
		Expect(s.Send(context.Background(), "hi")).To(Succeed())
		Expect(s.Reset()).To(Succeed())
		Expect(s.Messages()).To(BeEmpty())
	})

	Describe("WithHistory", func() {
		history := []llm.Message{
			llm.NewUserMessage("do you do websites?"),
			llm.NewAssistantMessage("yes"),
		}

		It("puts the greeting in front of a resumed conversation", func() {
			s := chat.NewSession(&fakeStreamer{}, chat.WithHistory(history))
			Expect(s.Messages()).To(HaveLen(3))
			Expect(s.Messages()[0]).To(Equal(llm.NewAssistantMessage(chat.DefaultGreeting)))
		})

		It("does not duplicate a saved greeting", func() {
			saved := append([]llm.Message{llm.NewAssistantMessage(chat.DefaultGreeting)}, history...)
			s := chat.NewSession(&fakeStreamer{}, chat.WithHistory(saved))
			Expect(s.Messages()).To(Equal(saved))
		})

		It("sends the resumed conversation upstream", func() {
			streamer := &fakeStreamer{body: deltaFrame("sure")}
			s := chat.NewSession(streamer, chat.WithHistory(history))

			Expect(s.Send(context.Background(), "how much?")).To(Succeed())
			Expect(streamer.calls()).To(HaveLen(1))
			Expect(streamer.calls()[0]).To(Equal(append(history, llm.NewUserMessage("how much?"))))
		})

		It("resets back to the greeting", func() {
			s := chat.NewSession(&fakeStreamer{}, chat.WithHistory(history))
			Expect(s.Reset()).To(Succeed())
			Expect(s.Messages()).To(Equal([]llm.Message{llm.NewAssistantMessage(chat.DefaultGreeting)}))
		})
	})
})
