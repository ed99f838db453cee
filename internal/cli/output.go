package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// printTable writes rows under a header in aligned columns, trimming
// trailing whitespace from each line.
func printTable(w io.Writer, header []string, rows [][]string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	dashes := make([]string, len(header))
	for i, h := range header {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func activeMark(id, active uuid.UUID) string {
	if id == active {
		return "*"
	}
	return ""
}

func printProject(w io.Writer, p types.Project) {
	fmt.Fprintf(w, "name:  %s\n", p.Name)
	fmt.Fprintf(w, "uuid:  %s\n", p.UUID)
	fmt.Fprintf(w, "owner: %s\n", types.Deref(p.Owner))
	fmt.Fprintf(w, "ctime: %s\n", formatTime(p.CTime))
	fmt.Fprintf(w, "abstract:\n  %s\n", types.Deref(p.Metadata))
}

func printExperiment(w io.Writer, e types.Experiment) {
	fmt.Fprintf(w, "name:    %s\n", e.Name)
	fmt.Fprintf(w, "uuid:    %s\n", e.UUID)
	fmt.Fprintf(w, "owner:   %s\n", types.Deref(e.Owner))
	fmt.Fprintf(w, "ctime:   %s\n", formatTime(e.CTime))
	if e.Locked {
		fmt.Fprintln(w, "locked:  yes")
	}
	fmt.Fprintf(w, "abstract:\n  %s\n", types.Deref(e.Metadata))
}

func printFile(w io.Writer, f types.FileRecord, creator string) {
	fmt.Fprintf(w, "path:     %s\n", types.Deref(f.Path))
	fmt.Fprintf(w, "role:     %s\n", f.Role)
	if f.Name != nil {
		fmt.Fprintf(w, "name:     %s\n", *f.Name)
	}
	fmt.Fprintf(w, "size:     %d\n", f.Size)
	fmt.Fprintf(w, "hash:     %s\n", f.Hash)
	fmt.Fprintf(w, "owner:    %s\n", types.Deref(f.Owner))
	fmt.Fprintf(w, "ctime:    %s\n", formatTime(f.CTime))
	fmt.Fprintf(w, "creator:  %s\n", creator)
	fmt.Fprintf(w, "metadata: %s\n", types.Deref(f.Metadata))
}

// printTree writes one line per node, children indented one space deeper
// than their parent.
func printTree(w io.Writer, tree types.FileTree, depth int, creator func(types.FileRecord) string) {
	n := tree.Node
	fmt.Fprintf(w, "%s%s %s  <- %s\n", strings.Repeat(" ", depth), types.Deref(n.Path), n.Role, creator(n))
	for _, c := range tree.Children {
		printTree(w, c, depth+1, creator)
	}
}
