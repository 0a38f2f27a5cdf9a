package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/chat"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
)

func newTestClient(url string) *chat.Client {
	c, err := chat.NewClient(chat.ClientConfig{
		Endpoint: url + "/functions/v1/ai-chat",
		APIKey:   "publishable-key",
	}, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("Client", func() {
	var server *httptest.Server

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("requires an endpoint", func() {
		_, err := chat.NewClient(chat.ClientConfig{}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("posts the messages with a bearer token", func() {
		var (
			gotAuth   string
			gotType   string
			gotPath   string
			gotMethod string
			gotBody   llm.ChatRequest
		)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("Content-Type")
			gotPath = r.URL.Path
			gotMethod = r.Method
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))

		body, err := newTestClient(server.URL).Stream(context.Background(), []llm.Message{
			llm.NewUserMessage("hi"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer body.Close()

		raw, err := io.ReadAll(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal("data: [DONE]\n\n"))

		Expect(gotMethod).To(Equal(http.MethodPost))
		Expect(gotPath).To(Equal("/functions/v1/ai-chat"))
		Expect(gotAuth).To(Equal("Bearer publishable-key"))
		Expect(gotType).To(Equal("application/json"))
		Expect(gotBody.Messages).To(Equal([]llm.Message{llm.NewUserMessage("hi")}))
	})

	It("surfaces the server's error message on a failed status", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{ "error": "rate limited" }`)
		}))

		_, err := newTestClient(server.URL).Stream(context.Background(), nil)
		Expect(err).To(MatchError("rate limited"))

		var statusErr *chat.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(chat.IsSetupFailure(err)).To(BeTrue())
	})

	It("falls back to a generic message when the error body is not JSON", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "<html>bad gateway</html>")
		}))

		_, err := newTestClient(server.URL).Stream(context.Background(), nil)
		Expect(err).To(MatchError(chat.DefaultFailureMessage))
	})

	It("falls back to a generic message when the error field is empty", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{}`)
		}))

		_, err := newTestClient(server.URL).Stream(context.Background(), nil)
		Expect(err).To(MatchError("Failed to get response"))
	})

	It("reports a success without a body", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		_, err := newTestClient(server.URL).Stream(context.Background(), nil)
		Expect(err).To(MatchError(chat.ErrNoResponseBody))
		Expect(err).To(MatchError("no response body"))
		Expect(chat.IsSetupFailure(err)).To(BeTrue())
	})

	It("wraps transport failures", func() {
		server = httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()
		server = nil

		_, err := newTestClient(url).Stream(context.Background(), nil)
		Expect(err).To(HaveOccurred())
		Expect(chat.IsSetupFailure(err)).To(BeFalse())
	})
})
