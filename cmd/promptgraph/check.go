package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ritzau/promptgraph/pkg/analysis"
	"github.com/ritzau/promptgraph/pkg/output"
	"github.com/ritzau/promptgraph/pkg/schema"
)

// runCheck validates each named file, or stdin for "-" or no names, and
// prints a report per input followed by a summary.
func runCheck(names []string, stdin io.Reader, stdout io.Writer, strict bool) int {
	if len(names) == 0 {
		names = []string{"-"}
	}

	var opts []schema.Option
	if strict {
		opts = append(opts, schema.WithIntegrity())
	}

	code := exitOK
	reports := make([]output.Report, 0, len(names))
	for _, name := range names {
		raw, err := readInput(name, stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = exitError
			continue
		}

		report := output.Report{Name: name, Result: schema.ValidateString(raw, opts...)}
		if name == "-" {
			report.Name = "<stdin>"
		}
		if report.Result.Valid() {
			m := analysis.Analyze(report.Result.Document)
			report.Metrics = &m
		} else if code == exitOK {
			code = exitInvalid
		}

		output.PrintReport(stdout, report)
		reports = append(reports, report)
	}

	if len(reports) > 1 {
		output.PrintSummary(stdout, reports)
	}
	return code
}

func readInput(name string, stdin io.Reader) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}
