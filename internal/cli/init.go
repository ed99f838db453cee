package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/logging"
	"github.com/mesh-intelligence/provenance/internal/workspace"
)

func newInitCmd() *cobra.Command {
	var opts workspace.InitOptions
	cmd := &cobra.Command{
		Use:   "init <project name>",
		Short: "Initialize a workspace",
		Long: `Init creates the .prov directory in the current directory (or --dir)
with its config file, ledger and content store, and creates the first
project, which becomes active.

Example:
  prov init soil-study
  prov init --store /data/objects --hash blake2b-256 soil-study`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Project = args[0]
			dir := flags.dir
			if dir == "" {
				dir = "."
			}
			log, err := logging.NewTo(cmd.ErrOrStderr(), "warn", logging.FormatConsole)
			if err != nil {
				return err
			}
			p, err := workspace.Init(cmd.Context(), dir, opts, log)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.UUID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Store, "store", "s", "", "location of the content store (default: .prov/store)")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "store digest algorithm: sha256 or blake2b-256 (default: sha256)")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner recorded on new records (default: current user)")
	return cmd
}
