package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/workspace"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

func newExperimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiment",
		Aliases: []string{"e"},
		Short:   "Manage experiments",
		Long: `Experiment commands act on the active experiment of the active project
unless --project or --experiment select others.`,
	}
	cmd.AddCommand(
		newExperimentListCmd(),
		newExperimentCreateCmd(),
		newExperimentInfoCmd(),
		newExperimentSetCmd(),
		newExperimentAbstractCmd(),
		newExperimentShowCmd(),
		newExperimentEditCmd(),
		newExperimentAppendCmd(),
		newExperimentRemoveCmd(),
		newExperimentLockCmd(true),
		newExperimentLockCmd(false),
	)
	return cmd
}

func newExperimentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List the experiments of the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, list, err := w.ListExperiments(ctx, flags.project)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), list)
				}
				_, active, err := activeIDs(ctx, w)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "project: %s (%s)\n", p.Name, p.UUID)
				rows := make([][]string, 0, len(list))
				for _, e := range list {
					rows = append(rows, []string{activeMark(e.UUID, active), e.Name, e.UUID.String(), types.Deref(e.Owner), formatTime(e.CTime)})
				}
				printTable(cmd.OutOrStdout(), []string{" ", "NAME", "UUID", "OWNER", "CREATED"}, rows)
				return nil
			})
		},
	}
}

func newExperimentCreateCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "create <name>",
		Aliases: []string{"c"},
		Short:   "Create an experiment in the selected project and make it active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.CreateExperiment(ctx, flags.project, args[0], message)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created new experiment %s (%s)\n", e.Name, e.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "abstract of the experiment")
	return cmd
}

func newExperimentInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Aliases: []string{"i"},
		Short:   "Show the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, e, err := w.Experiment(ctx, selection())
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "project: %s (%s)\n", p.Name, p.UUID)
				printExperiment(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}
}

func newExperimentSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <name|uuid>",
		Aliases: []string{"s"},
		Short:   "Make an experiment of the selected project active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.SetExperiment(ctx, workspace.Selection{Project: flags.project, Experiment: args[0]})
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Changed active experiment to %s (%s)\n", e.Name, e.UUID)
				return nil
			})
		},
	}
}

func newExperimentAbstractCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "abstract",
		Aliases: []string{"m"},
		Short:   "Replace the abstract of the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				_, e, err := w.Experiment(ctx, selection())
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), types.Deref(e.Metadata))
				if err != nil {
					return err
				}
				_, err = w.SetExperimentAbstract(ctx, selection(), text)
				return err
			})
		},
	}
	messageFlag(cmd, &message, "new abstract")
	return cmd
}

func newExperimentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"j"},
		Short:   "Print the journal of the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.ExperimentJournal(ctx, selection())
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "experiment: %s\n%s\n", e.Name, e.Journal)
				return nil
			})
		},
	}
}

func newExperimentEditCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "edit",
		Aliases: []string{"e"},
		Short:   "Replace the journal of the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.ExperimentJournal(ctx, selection())
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), e.Journal)
				if err != nil {
					return err
				}
				return w.SetExperimentJournal(ctx, selection(), text)
			})
		},
	}
	messageFlag(cmd, &message, "new journal text")
	return cmd
}

func newExperimentAppendCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "append",
		Aliases: []string{"a"},
		Short:   "Append a timestamped entry to the journal of the selected experiment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				if _, _, err := w.Experiment(ctx, selection()); err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), "")
				if err != nil {
					return err
				}
				return w.AppendExperimentJournal(ctx, selection(), text)
			})
		},
	}
	messageFlag(cmd, &message, "journal entry")
	return cmd
}

func newExperimentRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [name|uuid]",
		Aliases: []string{"r"},
		Short:   "Remove an experiment without files",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := selection()
			if len(args) == 1 {
				sel.Experiment = args[0]
			}
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.RemoveExperiment(ctx, sel)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed experiment %s (%s)\n", e.Name, e.UUID)
				return nil
			})
		},
	}
}

// newExperimentLockCmd builds "lock" or "unlock". The flag is recorded
// only; no command refuses to touch a locked experiment.
func newExperimentLockCmd(locked bool) *cobra.Command {
	use, short := "unlock", "Clear the locked flag of the selected experiment"
	if locked {
		use, short = "lock", "Set the locked flag of the selected experiment"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				e, err := w.SetExperimentLocked(ctx, selection(), locked)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s locked: %t\n", e.Name, e.Locked)
				return nil
			})
		},
	}
}
