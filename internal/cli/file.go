package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/workspace"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

func newFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "file",
		Aliases: []string{"f"},
		Short:   "Manage the files of an experiment",
		Long: `File commands act on the active experiment unless --project or
--experiment select another one. Files are named by path or by the hex
digest of their content.

Roles: input, output, note, program.`,
	}
	cmd.AddCommand(
		newFileListCmd(),
		newFileAddCmd(),
		newFileInfoCmd(),
		newFileUnlinkCmd(),
		newFileTrackCmd(),
		newFileRoleCmd(),
		newFileAbstractCmd(),
	)
	return cmd
}

func parseMappableRole(s string) (types.Role, error) {
	role, err := types.ParseRole(s)
	if err != nil {
		return types.RoleNone, types.InvalidArgument("file", err.Error())
	}
	if !role.Mappable() {
		return types.RoleNone, types.InvalidArgument("file", fmt.Sprintf("invalid role %q", s))
	}
	return role, nil
}

func newFileListCmd() *cobra.Command {
	var roleName string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List the files of the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := types.RoleNone
			if roleName != "" {
				var err error
				if role, err = parseMappableRole(roleName); err != nil {
					return err
				}
			}
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				list, err := w.ListFiles(ctx, selection(), role)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No files found.")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, f := range list {
					rows = append(rows, []string{f.Role.String(), types.Deref(f.Path), fmt.Sprint(f.Size), f.Hash.Short(), types.Deref(f.Owner)})
				}
				printTable(cmd.OutOrStdout(), []string{"ROLE", "PATH", "SIZE", "HASH", "OWNER"}, rows)
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d file(s)\n", len(list))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roleName, "role", "", "only list files with this role")
	return cmd
}

func newFileAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <role> <path>...",
		Aliases: []string{"a"},
		Short:   "Move files into the store and register them with a role",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseMappableRole(args[0])
			if err != nil {
				return err
			}
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				added := make([]types.FileRecord, 0, len(args)-1)
				for _, path := range args[1:] {
					rec, err := w.AddFile(ctx, selection(), path, role)
					if err != nil {
						return err
					}
					added = append(added, rec)
					if !flags.jsonMode {
						fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", rec.Role, path, rec.Hash)
					}
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), added)
				}
				return nil
			})
		},
	}
}

func newFileInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info <path|hash>",
		Aliases: []string{"i"},
		Short:   "Show a file of the selected experiment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				rec, err := w.LoadFile(ctx, selection(), args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				creator, err := w.Creator(ctx, rec)
				if err != nil {
					return err
				}
				printFile(cmd.OutOrStdout(), rec, creator)
				return nil
			})
		},
	}
}

func newFileUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unlink <path|hash>",
		Aliases: []string{"u"},
		Short:   "Detach a file from the selected experiment",
		Long: `Unlink removes the file from the experiment. If the experiment created
the file, the link is replaced by a writable copy of its content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				rec, err := w.UnlinkFile(ctx, selection(), args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s (%s)\n", rec.Role, types.Deref(rec.Path), rec.Hash)
				return nil
			})
		},
	}
}

func newFileTrackCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:     "track <path|hash>",
		Aliases: []string{"t"},
		Short:   "Print the lineage of a file",
		Long: `Track prints the inputs an output was made from, then for each input
the inputs of the experiment that created it, and so on.

Each line reads: path role  <- project::experiment of the creator.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				tree, err := w.TrackFile(ctx, selection(), args[0], depth)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), tree)
				}
				var lookupErr error
				printTree(cmd.OutOrStdout(), tree, 0, func(rec types.FileRecord) string {
					name, err := w.Creator(ctx, rec)
					if err != nil && lookupErr == nil {
						lookupErr = err
					}
					return name
				})
				return lookupErr
			})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", ledger.DefaultTrackDepth, "maximum depth of the walk")
	return cmd
}

func newFileRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <path|hash> <role>",
		Short: "Change the role of a file in the selected experiment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseMappableRole(args[1])
			if err != nil {
				return err
			}
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				rec, err := w.SetFileRole(ctx, selection(), args[0], role)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Changed %s to %s\n", types.Deref(rec.Path), rec.Role)
				return nil
			})
		},
	}
}

func newFileAbstractCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "abstract <path|hash>",
		Aliases: []string{"m"},
		Short:   "Replace the description of a file's content",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				rec, err := w.LoadFile(ctx, selection(), args[0])
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), types.Deref(rec.Metadata))
				if err != nil {
					return err
				}
				_, err = w.SetFileAbstract(ctx, selection(), rec.Hash.String(), text)
				return err
			})
		},
	}
	messageFlag(cmd, &message, "new description")
	return cmd
}
