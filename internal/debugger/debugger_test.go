package debugger

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/complexity"
	"github.com/yousuf/stepbyte/internal/config"
	"github.com/yousuf/stepbyte/internal/trace"
)

func newTestDebugger(t *testing.T, mutate ...func(*config.DebuggerConfig)) (*Debugger, *Metrics, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DebuggerConfig{
		Timeout:         5 * time.Second,
		MaxSteps:        100000,
		MaxDepth:        1000,
		MaxOutputBytes:  1 << 20,
		StagingDir:      dir,
		DisplayName:     "main.py",
		LibraryPatterns: trace.DefaultLibraryPatterns,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	cache, err := complexity.NewCache(8)
	require.NoError(t, err)
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(cfg, cache, metrics, nil), metrics, dir
}

func TestExecuteSimpleProgram(t *testing.T) {
	d, metrics, dir := newTestDebugger(t)
	res, err := d.Execute(context.Background(), "x = 1\nx = x + 1\nprint(x)\n", "")
	require.NoError(t, err)

	require.Equal(t, trace.OutcomeCompleted, res.Outcome)
	require.Len(t, res.CallHierarchy, 1)
	require.Equal(t, "<module>", res.CallHierarchy[0].Function)
	require.NotEmpty(t, res.DebugStates)
	for _, st := range res.DebugStates {
		require.False(t, st.Error)
	}
	require.Equal(t, "2\n", res.DebugStates[len(res.DebugStates)-1].Output)
	require.Equal(t, len(res.DebugStates), res.Stats.SimplifiedStates)
	require.GreaterOrEqual(t, res.Stats.RawStates, res.Stats.FilteredStates)
	require.GreaterOrEqual(t, res.Stats.FilteredStates, res.Stats.SimplifiedStates)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("completed")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "staged program must be removed")
}

func TestExecuteFactorial(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	src := "def factorial(n):\n    if n <= 1:\n        return 1\n    return n * factorial(n - 1)\n\nprint(factorial(3))\n"
	res, err := d.Execute(context.Background(), src, "")
	require.NoError(t, err)

	var depths []int
	ids := map[trace.CallID]bool{}
	for _, rec := range res.CallHierarchy {
		if rec.ParentID != "" {
			require.True(t, ids[rec.ParentID])
		}
		ids[rec.CallID] = true
		if rec.Function == "factorial" {
			depths = append(depths, rec.StackDepth)
		}
	}
	require.Equal(t, []int{1, 2, 3}, depths)
	require.Equal(t, "6\n", res.DebugStates[len(res.DebugStates)-1].Output)
	require.True(t, res.Complexity.HasRecursion)
	require.Equal(t, []string{"factorial"}, res.Complexity.RecursiveFunctions)
}

func TestExecuteDivisionByZero(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	res, err := d.Execute(context.Background(), "a = 10\nb = 0\nprint(a / b)\n", "")
	require.NoError(t, err)
	require.Equal(t, trace.OutcomeException, res.Outcome)

	last := res.DebugStates[len(res.DebugStates)-1]
	require.True(t, last.Error)
	require.Equal(t, "division by zero", last.ErrorMessage)
	require.Equal(t, "main", last.Function)
}

func TestExecuteSyntaxError(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	res, err := d.Execute(context.Background(), "print('ok')\nwhile True\n    pass\n", "")
	require.NoError(t, err)
	require.Equal(t, trace.OutcomeSyntaxError, res.Outcome)
	require.Len(t, res.DebugStates, 1)
	require.Contains(t, res.DebugStates[0].ErrorMessage, "(main.py, line 2)")
	require.Empty(t, res.CallHierarchy)
}

func TestExecuteStdinAndComplexity(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	src := "name = input()\nfor c in name:\n    print(c)\nfor c in name:\n    print(c)\n"
	res, err := d.Execute(context.Background(), src, "ab\n")
	require.NoError(t, err)
	require.Equal(t, "a\nb\na\nb\n", res.DebugStates[len(res.DebugStates)-1].Output)
	require.Equal(t, "O(n)", res.Complexity.Time)
	require.Len(t, res.Complexity.LoopDetails, 2)
}

func TestExecuteTimeout(t *testing.T) {
	d, metrics, _ := newTestDebugger(t, func(c *config.DebuggerConfig) {
		c.Timeout = 50 * time.Millisecond
		c.MaxSteps = 1 << 40
	})
	res, err := d.Execute(context.Background(), "n = 0\nwhile True:\n    n += 1\n", "")
	require.NoError(t, err)
	require.Equal(t, trace.OutcomeTimeout, res.Outcome)
	require.True(t, res.DebugStates[len(res.DebugStates)-1].Error)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Runs.WithLabelValues("timeout")))
}

func TestExecuteStepLimit(t *testing.T) {
	d, _, _ := newTestDebugger(t, func(c *config.DebuggerConfig) { c.MaxSteps = 50 })
	res, err := d.Execute(context.Background(), "while True:\n    pass\n", "")
	require.NoError(t, err)
	require.Equal(t, trace.OutcomeStepLimit, res.Outcome)
	require.Equal(t, "step limit exceeded", res.DebugStates[len(res.DebugStates)-1].ErrorMessage)
}

func TestExecuteEmptySource(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	_, err := d.Execute(context.Background(), "  \n", "")
	require.True(t, errors.Is(err, ErrEmptySource))
}

func TestExecuteSerializesRuns(t *testing.T) {
	d, _, _ := newTestDebugger(t)

	require.NoError(t, d.sem.Acquire(context.Background(), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Execute(ctx, "x = 1\n", "")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	d.sem.Release(1)

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Execute(context.Background(), "total = 0\nfor i in range(3):\n    total += i\nprint(total)\n", "")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, res := range results[1:] {
		require.Equal(t, results[0].DebugStates, res.DebugStates)
	}
}

func TestResultJSON(t *testing.T) {
	d, _, _ := newTestDebugger(t)
	res, err := d.Execute(context.Background(), "x = [1, 2]\nprint(x)\n", "")
	require.NoError(t, err)
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"debugStates", "callHierarchy", "complexity", "outcome", "stats"} {
		require.Contains(t, decoded, key)
	}
	require.Contains(t, string(decoded["debugStates"]), `"x":"[1, 2]"`)
}

func TestCheckLanguage(t *testing.T) {
	require.NoError(t, CheckLanguage("python"))
	require.NoError(t, CheckLanguage("Python"))
	require.NoError(t, CheckLanguage(""))
	require.True(t, errors.Is(CheckLanguage("javascript"), ErrNotImplemented))
	require.True(t, errors.Is(CheckLanguage("cobol"), ErrUnsupportedLanguage))
}
