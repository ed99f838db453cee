package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/workspace"
)

var errInconsistent = errors.New("workspace is inconsistent")

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "verify",
		Aliases: []string{"v"},
		Short:   "Check the store and the ledger against the files on disk",
		Long: `Verify checks every store object against its digest and every
registered file against its ledger entry. It exits with status 1 when
anything is wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				report, err := w.Verify(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					if err := printJSON(out, report); err != nil {
						return err
					}
				} else {
					if len(report.Store) > 0 {
						fmt.Fprintln(out, "Store is inconsistent!")
						for _, issue := range report.Store {
							fmt.Fprintf(out, "  %s\n", issue)
						}
					}
					for _, issue := range report.Files {
						fmt.Fprintln(out, issue)
					}
					if report.OK() {
						fmt.Fprintln(out, "Store and ledger are consistent.")
					}
				}
				if !report.OK() {
					return errInconsistent
				}
				return nil
			})
		},
	}
}
