// Package cli implements the prov command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/bootstrap"
	"github.com/mesh-intelligence/provenance/internal/metrics"
	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/internal/workspace"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	dir        string
	project    string
	experiment string
	jsonMode   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "prov" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prov",
		Short: "Track research data and how it was produced",
		Long: "prov records projects, experiments and the files they read and write.\n" +
			"Registered files move into a content-addressed store and are replaced\n" +
			"by links, so every output can be traced back to its inputs.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("prov {{.Version}}\n")

	root.PersistentFlags().StringVarP(&flags.dir, "dir", "d", "", "workspace directory, needed outside the workspace (env "+paths.EnvDir+")")
	root.PersistentFlags().StringVarP(&flags.project, "project", "p", "", "select project by name or uuid (default: active project)")
	root.PersistentFlags().StringVarP(&flags.experiment, "experiment", "e", "", "select experiment by name or uuid (default: active experiment)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newProjectCmd())
	root.AddCommand(newExperimentCmd())
	root.AddCommand(newFileCmd())
	root.AddCommand(newVerifyCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "prov:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps storage failures to exitSysError and everything else,
// including usage mistakes and rule violations, to exitUserError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStorage), errors.Is(err, types.ErrBackendDetached):
		return exitSysError
	default:
		return exitUserError
	}
}

// selection returns the project and experiment chosen by global flags.
func selection() workspace.Selection {
	return workspace.Selection{Project: flags.project, Experiment: flags.experiment}
}

// session is an opened workspace for the duration of one command.
type session struct {
	inj *do.Injector
	ws  *workspace.Workspace
}

func openSession(cmd *cobra.Command) (*session, error) {
	start, err := paths.ResolveStart(flags.dir)
	if err != nil {
		return nil, err
	}
	top, err := paths.FindRoot(start)
	if err != nil {
		return nil, err
	}
	inj := bootstrap.BuildContainer(top, cmd.ErrOrStderr())
	ws, err := do.Invoke[*workspace.Workspace](inj)
	if err != nil {
		_ = inj.Shutdown()
		return nil, err
	}
	return &session{inj: inj, ws: ws}, nil
}

// close writes the metrics textfile, if configured, and releases the
// ledger backend.
func (s *session) close() error {
	var errs []error
	if path := s.ws.Config().Metrics.Textfile; path != "" {
		rec := do.MustInvoke[*metrics.Recorder](s.inj)
		errs = append(errs, rec.WriteTextfile(path))
	}
	errs = append(errs, s.inj.Shutdown())
	return errors.Join(errs...)
}

// withWorkspace opens the workspace, runs fn and closes it again.
func withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, w *workspace.Workspace) error) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()
	return fn(cmd.Context(), s.ws)
}
