package quotescmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/quotation"
)

func newSubmitCmd(cmder *quotesCommander) *cobra.Command {
	req := &quotation.Request{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a quotation request the way the site form does",
		Long: `Submit a quotation request the way the site form does.

Name, email, phone, service id and service name are required. When stdin is
a terminal, missing required fields are prompted for. No admin key is needed.`,
		Args:    cobra.NoArgs,
		PreRunE: cmder.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Validate() != nil && isTerminal(cmd.InOrStdin()) {
				if err := promptMissing(req); err != nil {
					return err
				}
			}
			if err := req.Validate(); err != nil {
				return fmt.Errorf("%w: --name, --email, --phone, --service-id and --service-name are required", err)
			}

			w := cmd.OutOrStdout()
			var requestID string
			err := cliui.Step(w, "Submitting quotation request", func() error {
				resp, err := cmder.client().submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				requestID = resp.RequestID
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Request ID:"), cliui.IDStyle.Render(requestID))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FullName, "name", "", "Full name of the contact")
	cmd.Flags().StringVar(&req.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&req.CompanyName, "company", "", "Company name")
	cmd.Flags().StringVar(&req.ServiceID, "service-id", "", "Id of the requested service")
	cmd.Flags().StringVar(&req.ServiceName, "service-name", "", "Name of the requested service")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmder.addClientFlags(cmd)

	return cmd
}

// promptMissing asks for every blank required field.
func promptMissing(req *quotation.Request) error {
	fields := []struct {
		message string
		target  *string
	}{
		{"Full name:", &req.FullName},
		{"Email:", &req.Email},
		{"Phone:", &req.Phone},
		{"Service id:", &req.ServiceID},
		{"Service name:", &req.ServiceName},
	}

	for _, f := range fields {
		if strings.TrimSpace(*f.target) != "" {
			continue
		}
		prompt := &survey.Input{Message: f.message}
		if err := survey.AskOne(prompt, f.target, survey.WithValidator(survey.Required)); err != nil {
			return fmt.Errorf("reading %s: %w", strings.ToLower(strings.TrimSuffix(f.message, ":")), err)
		}
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
