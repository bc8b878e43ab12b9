// Package output prints validation reports for the console.
package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/ritzau/promptgraph/pkg/analysis"
	"github.com/ritzau/promptgraph/pkg/schema"
)

// Report is the outcome of validating one model response.
type Report struct {
	Name    string
	Result  schema.Result
	Metrics *analysis.Metrics // nil when invalid
}

// FormatError renders a validation error as it appears in the viewer:
// "Path: nodes.0.id - required".
func FormatError(e schema.ValidationError) string {
	path := e.Path.Dotted()
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("Path: %s - %s", path, e.Message)
}

// PrintReport writes a colored report for one response to w.
func PrintReport(w io.Writer, r Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, r.Name)

	if !r.Result.Valid() {
		red.Fprintf(w, "  ✗ invalid: %d error(s)\n", len(r.Result.Errors))
		for _, e := range r.Result.Errors {
			yellow.Fprintf(w, "    %s", FormatError(e))
			cyan.Fprintf(w, " [%s]\n", e.Code)
		}
		fmt.Fprintln(w)
		return
	}

	green.Fprintln(w, "  ✓ valid")
	if m := r.Metrics; m != nil {
		fmt.Fprintf(w, "    Nodes: %d (%d properties)\n", m.NodeCount, m.NodePropertyCount)
		fmt.Fprintf(w, "    Relationships: %d (%d properties)\n", m.RelationshipCount, m.RelationshipPropertyCount)
		if len(m.GroupCounts) > 0 {
			fmt.Fprintf(w, "    Groups: %s\n", formatGroups(m.GroupCounts))
		}
		fmt.Fprintf(w, "    Components: %d\n", m.ComponentCount)
		if len(m.IsolatedNodes) > 0 {
			yellow.Fprintf(w, "    Isolated nodes: %d\n", len(m.IsolatedNodes))
		}
		if m.DanglingRelationships > 0 {
			yellow.Fprintf(w, "    Dangling relationships: %d\n", m.DanglingRelationships)
		}
		if len(m.Cycles) > 0 {
			cyan.Fprintf(w, "    Cycles: %d\n", len(m.Cycles))
		}
	}
	fmt.Fprintln(w)
}

// PrintSummary writes the closing line for a batch of reports.
func PrintSummary(w io.Writer, reports []Report) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	valid := 0
	for _, r := range reports {
		if r.Result.Valid() {
			valid++
		}
	}

	if valid == len(reports) {
		green.Fprintf(w, "Summary: %d/%d valid\n", valid, len(reports))
		return
	}
	red.Fprintf(w, "Summary: %d/%d valid, %d invalid\n", valid, len(reports), len(reports)-valid)
}

func formatGroups(counts map[string]int) string {
	groups := make([]string, 0, len(counts))
	for g := range counts {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := ""
	for i, g := range groups {
		if i > 0 {
			out += ", "
		}
		name := g
		if name == "" {
			name = `""`
		}
		out += fmt.Sprintf("%s=%d", name, counts[g])
	}
	return out
}
