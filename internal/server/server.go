package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/session"
)

// DebugCodeArgs represents the arguments for the debug_code tool
type DebugCodeArgs struct {
	Code     string `json:"code" jsonschema:"Python source code to run and trace"`
	Input    string `json:"input,omitempty" jsonschema:"Text supplied to the program on standard input"`
	Language string `json:"language,omitempty" jsonschema:"Source language. Defaults to python."`
}

// GetDebugStateArgs represents the arguments for the get_debug_state tool
type GetDebugStateArgs struct {
	Index int `json:"index" jsonschema:"Zero-based position in the debugStates of the last debug_code run"`
}

// AnalyzeComplexityArgs represents the arguments for the analyze_complexity tool
type AnalyzeComplexityArgs struct {
	Code string `json:"code" jsonschema:"Python source code to analyse without running it"`
}

// NewMcpServer creates and configures the MCP server
func NewMcpServer(d *debugger.Debugger, sessionMgr *session.Manager, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "stepbyte",
		Version: "1.0.0",
	}, &mcp.ServerOptions{
		Instructions: `
Step-by-step Python execution tracing

stepbyte runs a Python program line by line and records what happened at each
step: the line, the function, the local variables, the call stack and any
exception. It also gives a rough time/space complexity estimate.

Available Tools:
1. "debug_code" - Run a program and record its trace. Returns a summary and the full trace as JSON.
2. "get_debug_state" - Show one step of the last trace recorded in this session.
3. "analyze_complexity" - Estimate complexity without running the program.

Recommended Workflow:
1. Call debug_code({ code: "..." , input: "..." })
2. Walk through the trace with get_debug_state({ index: 0 }), get_debug_state({ index: 1 }), ...

Notes:
- The language is a Python subset: functions, lambdas, closures, loops, list/dict/str methods, input() and print()
- Imports, classes, try/except, with and the ** operator are not supported (use pow(a, b))
- Runs are limited in time, steps, recursion depth and output size
`,
	})

	server.AddReceivingMiddleware(createSessionInjectionMiddleware(sessionMgr))
	server.AddReceivingMiddleware(createLoggingMiddleware(logger))

	// Register debug_code tool
	mcp.AddTool(server, &mcp.Tool{
		Name:        "debug_code",
		Description: "Run a Python program under the tracer. The result is kept in the session so get_debug_state can step through it.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DebugCodeArgs) (*mcp.CallToolResult, any, error) {
		sessionCtx, err := getSessionFromContext(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := debugger.CheckLanguage(args.Language); err != nil {
			return nil, nil, err
		}

		res, err := d.Execute(ctx, args.Code, args.Input)
		if err != nil {
			return nil, nil, errors.Wrap(err, "debugging failed")
		}
		sessionCtx.SetResult(res)

		data, err := json.Marshal(res)
		if err != nil {
			return nil, nil, errors.Wrap(err, "encoding result")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summarize(res)},
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})

	// Register get_debug_state tool
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_debug_state",
		Description: "Return one state of the last debug_code run in this session.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetDebugStateArgs) (*mcp.CallToolResult, any, error) {
		sessionCtx, err := getSessionFromContext(ctx)
		if err != nil {
			return nil, nil, err
		}
		res := sessionCtx.Result()
		if res == nil {
			return nil, nil, errors.New("no trace recorded in this session; call debug_code first")
		}
		n := len(res.DebugStates)
		if args.Index < 0 || args.Index >= n {
			return nil, nil, errors.Newf("index %d out of range: the trace has %d states", args.Index, n)
		}

		data, err := json.MarshalIndent(res.DebugStates[args.Index], "", "  ")
		if err != nil {
			return nil, nil, errors.Wrap(err, "encoding state")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("state %d of %d", args.Index+1, n)},
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})

	// Register analyze_complexity tool
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_complexity",
		Description: "Estimate the time and space complexity of a Python program from its source, without running it.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeComplexityArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.Code) == "" {
			return nil, nil, debugger.ErrEmptySource
		}
		data, err := json.MarshalIndent(d.Estimate(ctx, args.Code), "", "  ")
		if err != nil {
			return nil, nil, errors.Wrap(err, "encoding estimate")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})

	return server
}

// summarize describes a run in a few lines.
func summarize(res *debugger.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "outcome: %s\n", res.Outcome)
	fmt.Fprintf(&b, "states: %d (raw %d), calls: %d\n",
		res.Stats.SimplifiedStates, res.Stats.RawStates, res.Stats.Calls)
	fmt.Fprintf(&b, "complexity: time %s, space %s\n", res.Complexity.Time, res.Complexity.Space)
	if n := len(res.DebugStates); n > 0 {
		last := res.DebugStates[n-1]
		if last.Error {
			fmt.Fprintf(&b, "error: %s\n", last.ErrorMessage)
		}
		if last.Output != "" {
			fmt.Fprintf(&b, "output:\n%s", last.Output)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
