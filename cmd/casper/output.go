package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/edeas123/aws-terraform-casper/state"
	"github.com/edeas123/aws-terraform-casper/types"
)

const rule = "--------------------------------------------------------"

// printBuild writes the per-project table followed by the counters block.
func printBuild(w io.Writer, report *state.Report, location string) {
	fmt.Fprintln(w)
	if len(report.Projects) > 0 {
		printProjects(w, report.Projects)
		fmt.Fprintln(w)
	}

	c := report.Counters
	fmt.Fprintln(w, "Terraform")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%d state(s) checked\n", c.State)
	fmt.Fprintf(w, "%d supported resource group(s) discovered\n", c.ResourceGroup)
	fmt.Fprintf(w, "%d state resource(s) saved to %s\n", c.Resource, location)
}

func printProjects(w io.Writer, projects []state.Project) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tBACKEND\tSTATE\tRESOURCES")
	for _, p := range projects {
		status := "listed"
		if !p.Listed {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Dir, p.Backend, status, p.Resources)
	}
	_ = tw.Flush()
}

// printScan writes one block per service, then the overall status line.
func printScan(w io.Writer, services []string, results map[string]types.ServiceResult) {
	fmt.Fprintln(w)

	total := 0
	for _, name := range services {
		result := results[name]

		fmt.Fprintln(w, strings.ToUpper(name))
		fmt.Fprintln(w, rule)

		groups := make([]string, 0, len(result))
		for group := range result {
			groups = append(groups, group)
		}
		sort.Strings(groups)

		for _, group := range groups {
			if count := result[group].Count; count > 0 {
				fmt.Fprintf(w, "%d ghost %s found\n", count, group)
			}
		}
		fmt.Fprintln(w)
		total += result.Total()
	}

	fmt.Fprintln(w, rule)
	if total > 0 {
		fmt.Fprintf(w, "%d ghost resource(s) found\n", total)
	} else {
		fmt.Fprintln(w, "No ghost resources found")
	}
}

// writeResults writes results as indented JSON and returns the absolute path.
func writeResults(path string, results map[string]types.ServiceResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 -- report meant to be shared
		return "", fmt.Errorf("write results: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func printResultPath(w io.Writer, path string) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Full result written to %s\n", path)
}
