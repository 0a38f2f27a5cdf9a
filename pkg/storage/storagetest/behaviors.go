// Package storagetest holds the shared ginkgo specs every storage.Driver
// must pass.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
)

var base = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

// NewRecord builds a pending quotation created n minutes after a fixed base
// time.
func NewRecord(id string, n int) *quotation.Record {
	at := base.Add(time.Duration(n) * time.Minute)
	return &quotation.Record{
		ID:          id,
		FullName:    "Client " + id,
		Email:       id + "@example.com",
		Phone:       "+91 98765 43210",
		ServiceID:   "web-dev",
		ServiceName: "Website Development",
		Status:      quotation.StatusPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// NewTurn builds a chat turn completed n seconds after a fixed base time.
func NewTurn(id string, n int) *llm.ChatTurn {
	return &llm.ChatTurn{
		ID:    id,
		Model: "test-model",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are JL Assistant."},
			llm.NewUserMessage("question " + id),
		},
		Reply:       "answer " + id,
		StartedAt:   base.Add(time.Duration(n) * time.Second),
		CompletedAt: base.Add(time.Duration(n)*time.Second + 500*time.Millisecond),
	}
}

// DriverBehaviors registers the conformance tests. newDriver is called
// before each test and must return an empty store; the driver is closed
// afterwards.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		d   storage.Driver
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		d = nil
		d = newDriver()
	})

	AfterEach(func() {
		if d != nil {
			Expect(d.Close()).To(Succeed())
		}
	})

	Describe("quotations", func() {
		It("stores and fetches a record", func() {
			r := NewRecord("q1", 0)
			r.CompanyName = "Acme Pvt Ltd"
			r.Notes = "Need a booking site — ₹ budget flexible"
			Expect(d.PutQuotation(ctx, r)).To(Succeed())

			got, err := d.GetQuotation(ctx, "q1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FullName).To(Equal(r.FullName))
			Expect(got.CompanyName).To(Equal("Acme Pvt Ltd"))
			Expect(got.Notes).To(Equal(r.Notes))
			Expect(got.Status).To(Equal(quotation.StatusPending))
			Expect(got.CreatedAt).To(BeTemporally("==", r.CreatedAt))
		})

		It("keeps optional fields empty", func() {
			Expect(d.PutQuotation(ctx, NewRecord("q1", 0))).To(Succeed())

			got, err := d.GetQuotation(ctx, "q1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CompanyName).To(BeEmpty())
			Expect(got.Notes).To(BeEmpty())
		})

		It("rejects duplicate ids", func() {
			Expect(d.PutQuotation(ctx, NewRecord("q1", 0))).To(Succeed())
			Expect(d.PutQuotation(ctx, NewRecord("q1", 1))).NotTo(Succeed())
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := d.GetQuotation(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))

			_, err = d.UpdateQuotationStatus(ctx, "missing", quotation.StatusClosed, base)
			Expect(err).To(MatchError(storage.ErrNotFound))

			Expect(d.DeleteQuotation(ctx, "missing")).To(MatchError(storage.ErrNotFound))
		})

		It("lists newest first with status filter and limit", func() {
			for i := range 5 {
				Expect(d.PutQuotation(ctx, NewRecord(fmt.Sprintf("q%d", i), i))).To(Succeed())
			}
			_, err := d.UpdateQuotationStatus(ctx, "q1", quotation.StatusContacted, base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			_, err = d.UpdateQuotationStatus(ctx, "q3", quotation.StatusContacted, base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())

			all, err := d.ListQuotations(ctx, quotation.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"q4", "q3", "q2", "q1", "q0"}))

			contacted, err := d.ListQuotations(ctx, quotation.Filter{Status: quotation.StatusContacted})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(contacted)).To(Equal([]string{"q3", "q1"}))

			limited, err := d.ListQuotations(ctx, quotation.Filter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(limited)).To(Equal([]string{"q4", "q3"}))
		})

		It("updates the status and update time", func() {
			Expect(d.PutQuotation(ctx, NewRecord("q1", 0))).To(Succeed())

			at := base.Add(2 * time.Hour)
			updated, err := d.UpdateQuotationStatus(ctx, "q1", quotation.StatusConverted, at)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(quotation.StatusConverted))
			Expect(updated.UpdatedAt).To(BeTemporally("==", at))
			Expect(updated.CreatedAt).To(BeTemporally("==", base))
		})

		It("deletes a record", func() {
			Expect(d.PutQuotation(ctx, NewRecord("q1", 0))).To(Succeed())
			Expect(d.DeleteQuotation(ctx, "q1")).To(Succeed())

			_, err := d.GetQuotation(ctx, "q1")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("chat turns", func() {
		It("stores turns and lists them newest first", func() {
			for i := range 3 {
				Expect(d.PutChatTurn(ctx, NewTurn(fmt.Sprintf("t%d", i), i))).To(Succeed())
			}

			turns, err := d.ListChatTurns(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].ID).To(Equal("t2"))
			Expect(turns[2].ID).To(Equal("t0"))
			Expect(turns[0].Messages).To(Equal(NewTurn("t2", 2).Messages))
			Expect(turns[0].Reply).To(Equal("answer t2"))
			Expect(turns[0].Duration()).To(Equal(500 * time.Millisecond))

			limited, err := d.ListChatTurns(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(1))
			Expect(limited[0].ID).To(Equal("t2"))
		})

		It("round-trips usage", func() {
			t := NewTurn("t1", 0)
			t.Usage = &llm.Usage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 42}
			Expect(d.PutChatTurn(ctx, t)).To(Succeed())
			Expect(d.PutChatTurn(ctx, NewTurn("t2", 1))).To(Succeed())

			turns, err := d.ListChatTurns(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0].Usage).To(BeNil())
			Expect(turns[1].Usage).To(Equal(t.Usage))
		})
	})
}

func ids(records []*quotation.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
