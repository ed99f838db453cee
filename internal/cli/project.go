package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/workspace"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage projects",
		Long: `Project commands act on the active project unless --project selects
another one by name or uuid.`,
	}
	cmd.AddCommand(
		newProjectListCmd(),
		newProjectCreateCmd(),
		newProjectInfoCmd(),
		newProjectSetCmd(),
		newProjectAbstractCmd(),
		newProjectShowCmd(),
		newProjectEditCmd(),
		newProjectAppendCmd(),
		newProjectRemoveCmd(),
		newProjectAssetsCmd(),
	)
	return cmd
}

// activeIDs returns the UUIDs of the active project and experiment, or
// uuid.Nil for unbound ones.
func activeIDs(ctx context.Context, w *workspace.Workspace) (uuid.UUID, uuid.UUID, error) {
	p, e, err := w.Active(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	var pid, eid uuid.UUID
	if v, ok := p.Get(); ok {
		pid = v.UUID
	}
	if v, ok := e.Get(); ok {
		eid = v.UUID
	}
	return pid, eid, nil
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List all projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				list, err := w.ListProjects(ctx)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), list)
				}
				active, _, err := activeIDs(ctx, w)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					rows = append(rows, []string{activeMark(p.UUID, active), p.Name, p.UUID.String(), types.Deref(p.Owner), formatTime(p.CTime)})
				}
				printTable(cmd.OutOrStdout(), []string{" ", "NAME", "UUID", "OWNER", "CREATED"}, rows)
				return nil
			})
		},
	}
}

func newProjectCreateCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "create <name>",
		Aliases: []string{"c"},
		Short:   "Create a project and make it active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.CreateProject(ctx, args[0], message)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created new project %s (%s)\n", p.Name, p.UUID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "abstract of the project")
	return cmd
}

func newProjectInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Aliases: []string{"i"},
		Short:   "Show the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.Project(ctx, flags.project)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), p)
				}
				printProject(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
}

func newProjectSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <name|uuid>",
		Aliases: []string{"s"},
		Short:   "Make a project active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.SetProject(ctx, args[0])
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Changed active project to %s (%s)\n", p.Name, p.UUID)
				return nil
			})
		},
	}
}

func newProjectAbstractCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "abstract",
		Aliases: []string{"m"},
		Short:   "Replace the abstract of the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.Project(ctx, flags.project)
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), types.Deref(p.Metadata))
				if err != nil {
					return err
				}
				_, err = w.SetProjectAbstract(ctx, p.UUID.String(), text)
				return err
			})
		},
	}
	messageFlag(cmd, &message, "new abstract")
	return cmd
}

func newProjectShowCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"j"},
		Short:   "Print the journal of the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.ProjectJournal(ctx, flags.project)
				if err != nil {
					return err
				}
				var exps []types.Experiment
				if all {
					if _, exps, err = w.ListExperiments(ctx, p.UUID.String()); err != nil {
						return err
					}
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), struct {
						Project     types.Project      `json:"project"`
						Experiments []types.Experiment `json:"experiments,omitempty"`
					}{p, exps})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "project: %s\n%s\n", p.Name, p.Journal)
				for _, e := range exps {
					fmt.Fprintf(out, "experiment: %s\n%s\n", e.Name, e.Journal)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also print the journals of all experiments")
	return cmd
}

func newProjectEditCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "edit",
		Aliases: []string{"e"},
		Short:   "Replace the journal of the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.ProjectJournal(ctx, flags.project)
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), p.Journal)
				if err != nil {
					return err
				}
				return w.SetProjectJournal(ctx, p.UUID.String(), text)
			})
		},
	}
	messageFlag(cmd, &message, "new journal text")
	return cmd
}

func newProjectAppendCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:     "append",
		Aliases: []string{"a"},
		Short:   "Append a timestamped entry to the journal of the selected project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.Project(ctx, flags.project)
				if err != nil {
					return err
				}
				text, err := textFor(cmd, message, w.Top(), "")
				if err != nil {
					return err
				}
				return w.AppendProjectJournal(ctx, p.UUID.String(), text)
			})
		},
	}
	messageFlag(cmd, &message, "journal entry")
	return cmd
}

func newProjectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [name|uuid]",
		Aliases: []string{"r"},
		Short:   "Remove a project without experiments",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := flags.project
			if len(args) == 1 {
				sel = args[0]
			}
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				p, err := w.RemoveProject(ctx, sel)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s (%s)\n", p.Name, p.UUID)
				return nil
			})
		},
	}
}

func newProjectAssetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "assets",
		Aliases: []string{"b"},
		Short:   "Show the selected project with all experiments and files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				assets, err := w.ProjectAssets(ctx, flags.project)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), assets)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Project:")
				printProject(out, assets.Project)
				for _, ea := range assets.Experiments {
					fmt.Fprintln(out, "=> Experiment:")
					printExperiment(out, ea.Experiment)
					for _, f := range ea.Files {
						creator, err := w.Creator(ctx, f)
						if err != nil {
							return err
						}
						fmt.Fprintln(out, "=> File:")
						printFile(out, f, creator)
					}
				}
				return nil
			})
		},
	}
}
