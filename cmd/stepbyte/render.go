package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yousuf/stepbyte/internal/complexity"
	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/simplify"
)

// renderResult prints the steps of a run as a table followed by its
// output and summary.
func renderResult(w io.Writer, res *debugger.Result) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"#", "Line", "Function", "Event", "Depth", "Variables", "Error"})
	tbl.SetAutoWrapText(false)
	for i, st := range res.DebugStates {
		tbl.Append([]string{
			strconv.Itoa(i),
			strconv.Itoa(st.Line),
			st.Function,
			string(st.EventType),
			strconv.Itoa(st.StackDepth),
			formatVariables(st),
			st.ErrorMessage,
		})
	}
	tbl.Render()

	if n := len(res.DebugStates); n > 0 {
		last := res.DebugStates[n-1]
		if last.Output != "" {
			fmt.Fprintf(w, "\noutput:\n%s", last.Output)
			if !strings.HasSuffix(last.Output, "\n") {
				fmt.Fprintln(w)
			}
		}
		if last.ErrorOutput != "" {
			fmt.Fprintf(w, "\nstderr:\n%s", last.ErrorOutput)
		}
	}
	fmt.Fprintf(w, "\noutcome: %s, %d calls, time %s, space %s\n",
		res.Outcome, res.Stats.Calls, res.Complexity.Time, res.Complexity.Space)
}

func formatVariables(st simplify.State) string {
	parts := make([]string, 0, len(st.Variables))
	for _, v := range st.Variables {
		parts = append(parts, v.Name+"="+v.Value.String())
	}
	return strings.Join(parts, ", ")
}

// renderEstimate prints an estimate and its loops.
func renderEstimate(w io.Writer, est complexity.Estimate) {
	fmt.Fprintf(w, "time: %s\nspace: %s\n", est.Time, est.Space)
	if len(est.RecursiveFunctions) > 0 {
		fmt.Fprintf(w, "recursive: %s\n", strings.Join(est.RecursiveFunctions, ", "))
	}
	if len(est.LoopDetails) == 0 {
		return
	}
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Line", "Type", "Nesting", "Source"})
	tbl.SetAutoWrapText(false)
	for _, l := range est.LoopDetails {
		tbl.Append([]string{
			strconv.Itoa(l.LineNumber),
			l.Type,
			strconv.Itoa(l.NestingLevel),
			strings.TrimSpace(l.Line),
		})
	}
	tbl.Render()
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := commandContext(cmd)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
