// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package migration

import (
	"fmt"
	"io"
)

// Report collects the per-resource outcomes of one run.
type Report struct {
	Migration string
	DryRun    bool
	Results   []Result
	Migrated  int
	Skipped   int
	Failed    int
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeMigrated:
		r.Migrated++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Total is the number of candidates the run looked at.
func (r *Report) Total() int {
	return len(r.Results)
}

// Print writes one line per resource followed by a summary, for manual
// audit after a run.
func (r *Report) Print(w io.Writer) {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeFailed:
			fmt.Fprintf(w, "%-8s %s: %v\n", res.Outcome, res.ResourceID, res.Err)
		case OutcomeSkipped:
			fmt.Fprintf(w, "%-8s %s: %s\n", res.Outcome, res.ResourceID, res.Reason)
		default:
			if res.Reason != "" {
				fmt.Fprintf(w, "%-8s %s (%s)\n", res.Outcome, res.ResourceID, res.Reason)
			} else {
				fmt.Fprintf(w, "%-8s %s\n", res.Outcome, res.ResourceID)
			}
		}
	}

	mode := "applied"
	if r.DryRun {
		mode = "dry run, nothing written"
	}
	fmt.Fprintf(w, "%s: %d candidates, %d migrated, %d skipped, %d failed (%s)\n",
		r.Migration, r.Total(), r.Migrated, r.Skipped, r.Failed, mode)
}
