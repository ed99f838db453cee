package cli

import (
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// editFunc opens initial in the user's editor and returns the saved text.
// Tests replace it.
var editFunc = editInEditor

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// editInEditor runs $EDITOR on a temporary file in the workspace directory
// of top.
func editInEditor(top, initial string) (string, error) {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return "", types.InvalidArgument("editor", "no terminal attached, pass the text with -m")
	}
	editor := strings.Fields(os.Getenv("EDITOR"))
	if len(editor) == 0 {
		return "", types.InvalidArgument("editor", "$EDITOR is not set, pass the text with -m")
	}

	f, err := os.CreateTemp(paths.WorkspaceDir(top), "tmp_*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	defer os.Remove(name)
	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	c := exec.Command(editor[0], append(editor[1:], name)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return "", types.InvalidArgument("editor", err.Error())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// messageFlag registers -m/--message on cmd.
func messageFlag(cmd *cobra.Command, target *string, usage string) {
	cmd.Flags().StringVarP(target, "message", "m", "", usage+" (default: open $EDITOR)")
}

// textFor returns the -m value when given and otherwise the result of
// editing initial.
func textFor(cmd *cobra.Command, message, top, initial string) (string, error) {
	if cmd.Flags().Changed("message") {
		return message, nil
	}
	return editFunc(top, initial)
}
