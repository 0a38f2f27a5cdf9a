package quotescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/pkg/cliui"
	"github.com/jlsoftware/jlsite/pkg/quotation"
)

func newStatusCmd(cmder *quotesCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status <id> <status>",
		Short:   "Move a quotation request to another status",
		Long:    "Move a quotation request to another status: " + statusNames() + ".",
		Args:    cobra.ExactArgs(2),
		PreRunE: cmder.resolve,
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			names := make([]string, 0, 4)
			for _, st := range quotation.Statuses() {
				names = append(names, string(st))
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := quotation.ParseStatus(args[1])
			if err != nil {
				return err
			}
			if status == "" {
				return fmt.Errorf("a status is required: %s", statusNames())
			}

			rec, err := cmder.client().updateStatus(cmd.Context(), args[0], string(status))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s is now %s\n",
				cliui.SuccessMark,
				cliui.IDStyle.Render(rec.ID),
				cliui.Status(string(rec.Status)),
			)
			return nil
		},
	}

	cmder.addClientFlags(cmd)
	return cmd
}

func newDeleteCmd(cmder *quotesCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a quotation request",
		Args:    cobra.ExactArgs(1),
		PreRunE: cmder.resolve,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmder.client().delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Deleted %s\n",
				cliui.SuccessMark,
				cliui.IDStyle.Render(args[0]),
			)
			return nil
		},
	}

	cmder.addClientFlags(cmd)
	return cmd
}
