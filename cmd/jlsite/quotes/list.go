package quotescmder

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/utils"
)

func newListCmd(cmder *quotesCommander) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List quotation requests, newest first",
		Args:    cobra.NoArgs,
		PreRunE: cmder.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := quotation.ParseStatus(status); err != nil {
				return err
			}

			out, err := cmder.client().list(cmd.Context(), status, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Count == 0 {
				fmt.Fprintln(w, "No quotation requests found.")
				return nil
			}

			fmt.Fprintln(w)
			for _, rec := range out.Quotations {
				printRecordLine(w, rec)
			}
			fmt.Fprintf(w, "\n  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d request(s)", out.Count)))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only list requests with this status ("+statusNames()+" or all)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of requests to list")
	cmder.addClientFlags(cmd)

	return cmd
}

func newSummaryCmd(cmder *quotesCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "summary",
		Short:   "Count quotation requests per status",
		Args:    cobra.NoArgs,
		PreRunE: cmder.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := cmder.client().summary(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w)
			for _, st := range quotation.Statuses() {
				fmt.Fprintf(w, "  %-20s %s\n", cliui.Status(string(st)), cliui.ValueStyle.Render(fmt.Sprint(summary[st])))
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmder.addClientFlags(cmd)
	return cmd
}

func newShowCmd(cmder *quotesCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one quotation request",
		Args:    cobra.ExactArgs(1),
		PreRunE: cmder.resolve,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := cmder.client().get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmder.addClientFlags(cmd)
	return cmd
}

func printRecordLine(w io.Writer, rec *quotation.Record) {
	company := ""
	if rec.CompanyName != "" {
		company = " " + cliui.DimStyle.Render("("+rec.CompanyName+")")
	}

	fmt.Fprintf(w, "  %s  %s  %s%s\n",
		cliui.IDStyle.Render(rec.ID),
		cliui.Status(string(rec.Status)),
		cliui.NameStyle.Render(rec.FullName),
		company,
	)
	fmt.Fprintf(w, "    %s  %s  %s\n",
		cliui.ValueStyle.Render(rec.ServiceName),
		cliui.DimStyle.Render(rec.Email+" · "+rec.Phone),
		cliui.DimStyle.Render(rec.CreatedAt.Local().Format(time.DateTime)),
	)
	if rec.Notes != "" {
		notes := strings.ReplaceAll(rec.Notes, "\n", " ")
		fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(utils.Truncate(notes, 72)))
	}
}

func printRecord(w io.Writer, rec *quotation.Record) {
	field := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-9s", key+":")), value)
	}

	fmt.Fprintln(w)
	field("ID", cliui.IDStyle.Render(rec.ID))
	field("Status", cliui.Status(string(rec.Status)))
	field("Name", cliui.NameStyle.Render(rec.FullName))
	field("Company", rec.CompanyName)
	field("Email", rec.Email)
	field("Phone", rec.Phone)
	field("Service", fmt.Sprintf("%s %s", rec.ServiceName, cliui.DimStyle.Render("("+rec.ServiceID+")")))
	field("Notes", rec.Notes)
	field("Created", rec.CreatedAt.Local().Format(time.DateTime))
	field("Updated", rec.UpdatedAt.Local().Format(time.DateTime))
	fmt.Fprintln(w)
}

func statusNames() string {
	names := make([]string, 0, 4)
	for _, st := range quotation.Statuses() {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}
