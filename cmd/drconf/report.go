package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sshcollectorpro/drconf/internal/model"
)

// printReport 先输出汇总表，再按设备输出成功结果的各段数据
func printReport(w io.Writer, r *model.BatchReport) {
	ok, failed := r.Counts()
	fmt.Fprintf(w, "\n%s report (%s mode)\n", r.Operation.Title(), r.Mode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tTARGET\tSTATUS\tSTAGE\tREASON\tDURATION")
	for _, res := range r.Results {
		stage, reason := "-", "-"
		if res.Failure != nil {
			stage, reason = string(res.Failure.Stage), string(res.Failure.Reason)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", res.Line, res.Target, res.Status, stage, reason,
			(time.Duration(res.Duration) * time.Millisecond).String())
	}
	_ = tw.Flush()

	for _, res := range r.Results {
		switch {
		case res.Failure != nil && res.Failure.Detail != "":
			fmt.Fprintf(w, "\n== %s ==\n  %s\n", res.Target, res.Failure.Detail)
		case res.Data != nil:
			fmt.Fprintf(w, "\n== %s ==\n", res.Target)
			for _, sec := range res.Data.Sections() {
				fmt.Fprintf(w, "[%s]\n", sec.Name)
				if len(sec.Lines) == 0 {
					fmt.Fprintln(w, "  (none)")
				}
				for _, ln := range sec.Lines {
					fmt.Fprintf(w, "  %s\n", ln)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%d succeeded, %d failed, %d skipped", ok, failed, r.Skipped)
	if r.Cancelled {
		fmt.Fprint(w, ", cancelled")
	}
	fmt.Fprintf(w, " in %s\n\n", r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
}
