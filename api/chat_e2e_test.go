package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/chat"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
	"github.com/jlsoftware/jlsite/pkg/storage/inmemory"
	"github.com/jlsoftware/jlsite/proxy"
)

const upstreamStream = ": ping\n\n" +
	"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"We build \"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"POS systems ✓\"}}]}\n\n" +
	"data: [DONE]\n\n"

var _ = Describe("chat end to end", func() {
	var (
		upstream *httptest.Server
		driver   *inmemory.Driver
		relay    *proxy.Relay
		server   *Server
		baseURL  string
		status   int
	)

	BeforeEach(func() {
		status = http.StatusOK
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			for _, part := range strings.SplitAfter(upstreamStream, "\n\n") {
				_, _ = io.WriteString(w, part)
				w.(http.Flusher).Flush()
			}
		}))

		driver = inmemory.NewDriver()

		var err error
		relay, err = proxy.New(proxy.Config{
			UpstreamURL: upstream.URL,
			Model:       "llama3.2",
		}, driver, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ChatHandler: relay.Handler()}, driver, logger.Nop())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		baseURL = "http://" + listener.Addr().String()
		go func() {
			defer GinkgoRecover()
			_ = server.RunWithListener(listener)
		}()
	})

	AfterEach(func() {
		Expect(server.Shutdown()).To(Succeed())
		relay.Close()
		upstream.Close()
	})

	newSession := func() *chat.Session {
		client, err := chat.NewClient(chat.ClientConfig{
			Endpoint: baseURL + ChatPath,
			APIKey:   "publishable-key",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return chat.NewSession(client)
	}

	It("streams a reply into the session transcript", func() {
		s := newSession()

		Expect(s.Send(context.Background(), "What do you build?")).To(Succeed())

		msgs := s.Messages()
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[2]).To(Equal(llm.NewAssistantMessage("We build POS systems ✓")))
	})

	It("records the relayed turn", func() {
		s := newSession()
		Expect(s.Send(context.Background(), "What do you build?")).To(Succeed())

		Eventually(func() int {
			turns, _ := driver.ListChatTurns(context.Background(), 0)
			return len(turns)
		}).Should(Equal(1))
	})

	It("surfaces relay errors to the session", func() {
		status = http.StatusTooManyRequests
		s := newSession()

		err := s.Send(context.Background(), "hello?")
		Expect(chat.IsSetupFailure(err)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("Rate limit exceeded")))
		Expect(s.Messages()).To(HaveLen(2))
	})
})
