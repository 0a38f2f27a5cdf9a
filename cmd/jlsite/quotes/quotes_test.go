package quotescmder_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	quotescmder "github.com/jlsoftware/jlsite/cmd/jlsite/quotes"
	"github.com/jlsoftware/jlsite/api"
	"github.com/jlsoftware/jlsite/pkg/logger"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
	"github.com/jlsoftware/jlsite/pkg/storage/inmemory"
)

const adminKey = "admin-secret"

var _ = Describe("NewQuotesCmd", func() {
	It("creates a command with the correct use string", func() {
		Expect(quotescmder.NewQuotesCmd().Use).To(Equal("quotes"))
	})

	It("has the quotation subcommands", func() {
		cmds := quotescmder.NewQuotesCmd().Commands()
		names := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("list", "summary", "show", "status", "delete", "submit"))
	})
})

var _ = Describe("Quotes command execution", func() {
	var (
		configDir string
		driver    *inmemory.Driver
		service   *quotation.Service
		server    *httptest.Server
		out       *bytes.Buffer
	)

	run := func(args ...string) error {
		root := &cobra.Command{Use: "jlsite", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(quotescmder.NewQuotesCmd())

		out.Reset()
		root.SetIn(strings.NewReader(""))
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append(append([]string{"quotes"}, args...),
			"--api-target", server.URL,
			"--config-dir", configDir,
		))
		return root.Execute()
	}

	seed := func(name string) *quotation.Record {
		rec, err := service.Submit(context.Background(), &quotation.Request{
			FullName:    name,
			Email:       "ana@example.com",
			Phone:       "555-0100",
			CompanyName: "Lima Bakery",
			ServiceID:   "pos",
			ServiceName: "POS Systems",
		})
		Expect(err).NotTo(HaveOccurred())
		return rec
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		driver = inmemory.NewDriver()
		service = quotation.NewService(driver, logger.Nop())

		srv := api.NewServer(api.Config{AdminKey: adminKey}, driver, logger.Nop())
		server = httptest.NewServer(srv.Handler())
		DeferCleanup(server.Close)

		out = &bytes.Buffer{}
	})

	Describe("list", func() {
		It("lists stored requests", func() {
			rec := seed("Ana Lima")

			Expect(run("list", "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(ContainSubstring(rec.ID))
			Expect(out.String()).To(ContainSubstring("Ana Lima"))
			Expect(out.String()).To(ContainSubstring("POS Systems"))
			Expect(out.String()).To(ContainSubstring("1 request(s)"))
		})

		It("reports an empty list", func() {
			Expect(run("list", "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No quotation requests found."))
		})

		It("filters by status", func() {
			seed("Ana Lima")
			Expect(run("list", "--status", "contacted", "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No quotation requests found."))
		})

		It("rejects an unknown status before calling the server", func() {
			Expect(run("list", "--status", "lost", "--admin-key", adminKey)).To(MatchError(ContainSubstring("unknown quotation status")))
		})

		It("takes the admin key from the environment", func() {
			GinkgoT().Setenv("JLSITE_SERVER_ADMIN_KEY", adminKey)
			seed("Ana Lima")
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Ana Lima"))
		})

		It("fails without the admin key", func() {
			err := run("list")
			Expect(err).To(MatchError(ContainSubstring("HTTP 401")))
			Expect(err).To(MatchError(ContainSubstring("unauthorized")))
		})
	})

	Describe("summary", func() {
		It("counts requests per status", func() {
			seed("Ana Lima")
			seed("Bruno Costa")

			Expect(run("summary", "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`pending\S*\s+\S*2`))
			Expect(out.String()).To(ContainSubstring("closed"))
		})
	})

	Describe("show", func() {
		It("prints one request", func() {
			rec := seed("Ana Lima")

			Expect(run("show", rec.ID, "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Lima Bakery"))
			Expect(out.String()).To(ContainSubstring("ana@example.com"))
		})

		It("surfaces not found", func() {
			Expect(run("show", "missing", "--admin-key", adminKey)).To(MatchError(ContainSubstring("quotation not found")))
		})
	})

	Describe("status", func() {
		It("updates the status", func() {
			rec := seed("Ana Lima")

			Expect(run("status", rec.ID, "contacted", "--admin-key", adminKey)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("is now"))

			stored, err := driver.GetQuotation(context.Background(), rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(quotation.StatusContacted))
		})

		It("requires a concrete status", func() {
			rec := seed("Ana Lima")
			Expect(run("status", rec.ID, "all", "--admin-key", adminKey)).To(MatchError(ContainSubstring("a status is required")))
		})
	})

	Describe("delete", func() {
		It("removes the request", func() {
			rec := seed("Ana Lima")

			Expect(run("delete", rec.ID, "--admin-key", adminKey)).To(Succeed())
			_, err := driver.GetQuotation(context.Background(), rec.ID)
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("submit", func() {
		It("posts the form without an admin key", func() {
			Expect(run("submit",
				"--name", "Ana Lima",
				"--email", "ana@example.com",
				"--phone", "555-0100",
				"--service-id", "web",
				"--service-name", "Websites",
				"--notes", "Landing page",
			)).To(Succeed())

			records, err := driver.ListQuotations(context.Background(), quotation.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ServiceName).To(Equal("Websites"))
			Expect(records[0].Notes).To(Equal("Landing page"))
			Expect(out.String()).To(ContainSubstring(records[0].ID))
		})

		It("validates required fields locally", func() {
			Expect(run("submit", "--name", "Ana Lima")).To(MatchError(quotation.ErrMissingFields))
		})
	})
})
