package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.py")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}

func resetRunFlags(t *testing.T) {
	t.Cleanup(func() {
		configPath, runStdin, runStdinFile, runFormat, runRaw = "", "", "", "table", false
		complexityFormat = "table"
	})
	configPath, runStdin, runStdinFile, runFormat, runRaw = "", "", "", "table", false
	complexityFormat = "table"
}

func TestRunTable(t *testing.T) {
	resetRunFlags(t)
	path := writeProgram(t, "x = 1\ny = x + 1\nprint(y)\n")

	cmd, out := testCommand()
	require.NoError(t, runRun(cmd, []string{path}))

	got := out.String()
	require.Contains(t, got, "FUNCTION")
	require.Contains(t, got, "x=1")
	require.Contains(t, got, "output:\n2\n")
	require.Contains(t, got, "outcome: completed")
}

func TestRunJSONWithStdin(t *testing.T) {
	resetRunFlags(t)
	runFormat = "json"
	runStdin = "ada\n"
	path := writeProgram(t, "name = input()\nprint(\"hi \" + name)\n")

	cmd, out := testCommand()
	require.NoError(t, runRun(cmd, []string{path}))

	var res struct {
		DebugStates []struct {
			Output string `json:"output"`
		} `json:"debugStates"`
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Equal(t, "completed", res.Outcome)
	require.NotEmpty(t, res.DebugStates)
	require.Equal(t, "hi ada\n", res.DebugStates[len(res.DebugStates)-1].Output)
}

func TestRunRaw(t *testing.T) {
	resetRunFlags(t)
	runRaw = true
	path := writeProgram(t, "def f(n):\n    return n * 2\nf(3)\n")

	cmd, out := testCommand()
	require.NoError(t, runRun(cmd, []string{path}))

	var raw struct {
		States        []json.RawMessage `json:"states"`
		CallHierarchy []struct {
			Function string `json:"function"`
		} `json:"callHierarchy"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &raw))
	require.NotEmpty(t, raw.States)
	var funcs []string
	for _, c := range raw.CallHierarchy {
		funcs = append(funcs, c.Function)
	}
	require.Contains(t, funcs, "f")
}

func TestRunRejects(t *testing.T) {
	resetRunFlags(t)

	cmd, _ := testCommand()
	require.Error(t, runRun(cmd, []string{writeProgram(t, "")}))

	runFormat = "yaml"
	require.ErrorContains(t, runRun(cmd, []string{writeProgram(t, "x = 1\n")}), "unknown format")
}

func TestComplexityCommand(t *testing.T) {
	resetRunFlags(t)
	path := writeProgram(t, "for i in range(3):\n    for j in range(3):\n        print(i, j)\n")

	cmd, out := testCommand()
	require.NoError(t, complexityCmd.RunE(cmd, []string{path}))
	got := out.String()
	require.True(t, strings.HasPrefix(got, "time: O(n²)\nspace: O(1)\n"), got)
	require.Contains(t, got, "NESTING")

	complexityFormat = "json"
	out.Reset()
	cmd.SetIn(strings.NewReader("def fib(n):\n    return fib(n - 1) + fib(n - 2)\n"))
	require.NoError(t, complexityCmd.RunE(cmd, []string{"-"}))
	var est struct {
		Time               string   `json:"time"`
		RecursiveFunctions []string `json:"recursive_functions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &est))
	require.Equal(t, "O(2^n)", est.Time)
	require.Equal(t, []string{"fib"}, est.RecursiveFunctions)
}
