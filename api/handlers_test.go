package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/logger"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
	"github.com/jlsoftware/jlsite/pkg/storage/inmemory"
)

const testAdminKey = "admin-secret"

const validQuotation = `{
	"fullName": "Jane Doe",
	"email": "jane@example.com",
	"phone": "+27 82 000 0000",
	"companyName": "Doe Bakery",
	"serviceId": "pos",
	"serviceName": "POS Systems",
	"notes": "Two tills"
}`

type recordingPublisher struct {
	mu         sync.Mutex
	quotations []*eventstream.QuotationSubmittedEvent
	err        error
}

func (p *recordingPublisher) PublishQuotation(_ context.Context, ev *eventstream.QuotationSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotations = append(p.quotations, ev)
	return p.err
}

func (p *recordingPublisher) PublishChatTurn(context.Context, *eventstream.ChatTurnRecordedEvent) error {
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// brokenDriver fails every write.
type brokenDriver struct {
	*inmemory.Driver
}

func (brokenDriver) PutQuotation(context.Context, *quotation.Record) error {
	return errors.New("connection refused")
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	Expect(json.NewDecoder(resp.Body).Decode(&v)).To(Succeed())
	return v
}

var _ = Describe("Server", func() {
	var (
		driver *inmemory.Driver
		pub    *recordingPublisher
		server *Server
	)

	do := func(method, path, body string, admin bool) *http.Response {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, r)
		req.Header.Set("Content-Type", "application/json")
		if admin {
			req.Header.Set("Authorization", "Bearer "+testAdminKey)
		}
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	seed := func(id string, status quotation.Status, age time.Duration) {
		now := time.Now().UTC()
		Expect(driver.PutQuotation(context.Background(), &quotation.Record{
			ID:          id,
			FullName:    "Lead " + id,
			Email:       id + "@example.com",
			Phone:       "123",
			ServiceID:   "web",
			ServiceName: "Websites",
			Status:      status,
			CreatedAt:   now.Add(-age),
			UpdatedAt:   now.Add(-age),
		})).To(Succeed())
	}

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		pub = &recordingPublisher{}
		server = NewServer(Config{AdminKey: testAdminKey, Publisher: pub}, driver, logger.Nop())
	})

	AfterEach(func() {
		_ = server.Shutdown()
	})

	It("answers ping", func() {
		resp := do(http.MethodGet, "/ping", "", false)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decode[string](resp)).To(Equal("pong"))
	})

	Describe("CORS", func() {
		It("answers preflight requests for the site functions", func() {
			req := httptest.NewRequest(http.MethodOptions, QuotationPath, nil)
			req.Header.Set("Origin", "https://jlsoftware.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "content-type, apikey")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.StatusCode).To(BeNumerically("<", 300))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Headers")).To(Equal(corsAllowHeaders))
		})

		It("marks simple responses as readable from any origin", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", "https://jlsoftware.example")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("POST "+QuotationPath, func() {
		It("stores the request as pending and returns its id", func() {
			resp := do(http.MethodPost, QuotationPath, validQuotation, false)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode[SubmitQuotationResponse](resp)
			Expect(body.Success).To(BeTrue())
			Expect(body.Message).To(Equal("Quotation request submitted successfully"))
			Expect(body.RequestID).NotTo(BeEmpty())

			rec, err := driver.GetQuotation(context.Background(), body.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.FullName).To(Equal("Jane Doe"))
			Expect(rec.CompanyName).To(Equal("Doe Bakery"))
			Expect(rec.Status).To(Equal(quotation.StatusPending))
		})

		It("publishes a submitted event", func() {
			body := decode[SubmitQuotationResponse](do(http.MethodPost, QuotationPath, validQuotation, false))

			Expect(pub.quotations).To(HaveLen(1))
			Expect(pub.quotations[0].EventType).To(Equal(eventstream.EventTypeQuotationSubmitted))
			Expect(pub.quotations[0].Quotation.ID).To(Equal(body.RequestID))
		})

		It("still succeeds when publishing fails", func() {
			pub.err = errors.New("broker down")

			resp := do(http.MethodPost, QuotationPath, validQuotation, false)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("rejects requests with missing fields", func() {
			resp := do(http.MethodPost, QuotationPath, `{"fullName":"Jane","email":"jane@example.com"}`, false)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[llm.ErrorResponse](resp).Error).To(Equal("Missing required fields"))
			Expect(pub.quotations).To(BeEmpty())
		})

		It("fails malformed bodies", func() {
			resp := do(http.MethodPost, QuotationPath, `{"fullName":`, false)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(decode[llm.ErrorResponse](resp).Error).To(Equal("Failed to process request"))
		})

		It("reports storage failures", func() {
			server = NewServer(Config{}, brokenDriver{inmemory.NewDriver()}, logger.Nop())

			resp := do(http.MethodPost, QuotationPath, validQuotation, false)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(decode[llm.ErrorResponse](resp).Error).To(Equal("Failed to save quotation request"))
		})
	})

	Describe("admin routes", func() {
		BeforeEach(func() {
			seed("old", quotation.StatusContacted, 2*time.Hour)
			seed("mid", quotation.StatusPending, time.Hour)
			seed("new", quotation.StatusPending, time.Minute)
		})

		It("requires the admin key", func() {
			resp := do(http.MethodGet, "/admin/quotations", "", false)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decode[llm.ErrorResponse](resp).Error).To(Equal("unauthorized"))
		})

		It("rejects a wrong admin key", func() {
			req := httptest.NewRequest(http.MethodGet, "/admin/quotations", nil)
			req.Header.Set("Authorization", "Bearer nope")
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("is not mounted without an admin key", func() {
			server = NewServer(Config{}, driver, logger.Nop())
			resp := do(http.MethodGet, "/admin/quotations", "", true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("lists quotations newest first", func() {
			resp := do(http.MethodGet, "/admin/quotations", "", true)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode[QuotationListResponse](resp)
			Expect(body.Count).To(Equal(3))
			Expect(body.Quotations[0].ID).To(Equal("new"))
			Expect(body.Quotations[2].ID).To(Equal("old"))
		})

		DescribeTable("filters by status",
			func(query string, want int) {
				body := decode[QuotationListResponse](do(http.MethodGet, "/admin/quotations"+query, "", true))
				Expect(body.Count).To(Equal(want))
			},
			Entry("pending", "?status=pending", 2),
			Entry("contacted", "?status=contacted", 1),
			Entry("converted", "?status=converted", 0),
			Entry("all", "?status=all", 3),
			Entry("limit", "?limit=1", 1),
		)

		It("rejects an unknown status filter", func() {
			resp := do(http.MethodGet, "/admin/quotations?status=won", "", true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a negative limit", func() {
			resp := do(http.MethodGet, "/admin/quotations?limit=-2", "", true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("summarizes quotations per status", func() {
			resp := do(http.MethodGet, "/admin/quotations/summary", "", true)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			Expect(decode[map[string]int](resp)).To(Equal(map[string]int{
				"pending":   2,
				"contacted": 1,
				"converted": 0,
				"closed":    0,
			}))
		})

		It("gets a single quotation", func() {
			rec := decode[quotation.Record](do(http.MethodGet, "/admin/quotations/mid", "", true))
			Expect(rec.ID).To(Equal("mid"))
		})

		It("returns 404 for unknown quotations", func() {
			resp := do(http.MethodGet, "/admin/quotations/missing", "", true)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decode[llm.ErrorResponse](resp).Error).To(Equal("quotation not found"))
		})

		It("updates a quotation's status", func() {
			resp := do(http.MethodPatch, "/admin/quotations/mid", `{"status":"converted"}`, true)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			rec := decode[quotation.Record](resp)
			Expect(rec.Status).To(Equal(quotation.StatusConverted))
			Expect(rec.UpdatedAt).To(BeTemporally(">", rec.CreatedAt))

			stored, err := driver.GetQuotation(context.Background(), "mid")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(quotation.StatusConverted))
		})

		DescribeTable("rejects invalid status updates",
			func(body string) {
				resp := do(http.MethodPatch, "/admin/quotations/mid", body, true)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			},
			Entry("unknown status", `{"status":"won"}`),
			Entry("all", `{"status":"all"}`),
			Entry("empty", `{}`),
			Entry("malformed", `{"status":`),
		)

		It("returns 404 when updating an unknown quotation", func() {
			resp := do(http.MethodPatch, "/admin/quotations/missing", `{"status":"closed"}`, true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("deletes a quotation", func() {
			resp := do(http.MethodDelete, "/admin/quotations/old", "", true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, err := driver.GetQuotation(context.Background(), "old")
			Expect(err).To(MatchError(storage.ErrNotFound))

			resp = do(http.MethodDelete, "/admin/quotations/old", "", true)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("lists recorded chat turns", func() {
			start := time.Now().UTC()
			for _, id := range []string{"t1", "t2"} {
				Expect(driver.PutChatTurn(context.Background(), &llm.ChatTurn{
					ID:          id,
					Model:       "llama3.2",
					Messages:    []llm.Message{llm.NewUserMessage("hi")},
					Reply:       "hello",
					StartedAt:   start,
					CompletedAt: start.Add(time.Second),
				})).To(Succeed())
			}

			body := decode[ChatTurnListResponse](do(http.MethodGet, "/admin/chat-turns?limit=1", "", true))
			Expect(body.Count).To(Equal(1))
			Expect(body.Turns[0].ID).To(Equal("t2"))
		})

		It("returns an empty list rather than null", func() {
			resp := do(http.MethodGet, "/admin/chat-turns", "", true)
			raw, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(MatchJSON(`{"turns":[],"count":0}`))
		})
	})
})
