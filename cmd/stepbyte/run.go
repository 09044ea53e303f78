package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/telemetry"
	"github.com/yousuf/stepbyte/internal/trace"
)

var (
	runStdin     string
	runStdinFile string
	runFormat    string
	runRaw       bool
)

var runCmd = &cobra.Command{
	Use:   "run <file|->",
	Short: "trace a program and print its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	src, err := readSource(cmd, args[0])
	if err != nil {
		return err
	}
	stdin := runStdin
	if runStdinFile != "" {
		data, err := os.ReadFile(runStdinFile)
		if err != nil {
			return errors.Wrap(err, "reading stdin file")
		}
		stdin = string(data)
	}
	out := cmd.OutOrStdout()

	if runRaw {
		return printRaw(cmd, cfg.Debugger, src, stdin)
	}

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), "warn", "text")
	d, err := newDebugger(cfg, nil, logger)
	if err != nil {
		return err
	}
	res, err := d.Execute(commandContext(cmd), string(src), stdin)
	if err != nil {
		return err
	}

	switch runFormat {
	case "json":
		return writeIndented(out, res)
	case "table":
		renderResult(out, res)
		return nil
	}
	return errors.Newf("unknown format %q", runFormat)
}

// printRaw traces src without staging it and prints every raw state.
func printRaw(cmd *cobra.Command, cfg config.DebuggerConfig, src []byte, stdin string) error {
	ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
	defer cancel()
	run, err := trace.Execute(ctx, src, stdin, trace.Options{
		Filename:        cfg.DisplayName,
		LibraryPatterns: cfg.LibraryPatterns,
		MaxSteps:        cfg.MaxSteps,
		MaxDepth:        cfg.MaxDepth,
		MaxOutputBytes:  cfg.MaxOutputBytes,
	})
	if err != nil {
		return err
	}
	return writeIndented(cmd.OutOrStdout(), struct {
		States  []trace.RawState   `json:"states"`
		Calls   []trace.CallRecord `json:"callHierarchy"`
		Outcome trace.Outcome      `json:"outcome"`
	}{run.States, run.Calls, run.Outcome})
}

func readSource(cmd *cobra.Command, name string) ([]byte, error) {
	var (
		src []byte
		err error
	)
	if name == "-" {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if len(src) == 0 {
		return nil, debugger.ErrEmptySource
	}
	return src, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
