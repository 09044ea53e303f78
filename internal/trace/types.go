// Package trace records the execution of a program as a chronological
// stream of raw states and a call hierarchy.
package trace

import (
	"bytes"
	"encoding/json"

	"github.com/yousuf/stepbyte/internal/sanitize"
)

// EventType is the kind of event a state records.
type EventType string

const (
	EventCall      EventType = "call"
	EventStep      EventType = "step"
	EventReturn    EventType = "return"
	EventException EventType = "exception"
)

// CallID identifies one function invocation within a run. The empty CallID
// means no call and is encoded as null.
type CallID string

func (id CallID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

func (id *CallID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = CallID(s)
	return nil
}

// CallRecord is one node of the call hierarchy.
type CallRecord struct {
	CallID     CallID   `json:"call_id"`
	ParentID   CallID   `json:"parent_id"`
	Function   string   `json:"function"`
	EntryLine  int      `json:"entry_line"`
	StackDepth int      `json:"stack_depth"`
	Children   []CallID `json:"children"`
}

// StackFrame is the compact form of an active call.
type StackFrame struct {
	Function string `json:"function"`
	Line     int    `json:"line"`
	CallID   CallID `json:"call_id"`
	ParentID CallID `json:"parent_id"`
}

// Variable is one captured binding.
type Variable struct {
	Name  string
	Value sanitize.Value
}

// Variables is an ordered set of bindings encoded as a JSON object.
type Variables []Variable

// Get returns the value bound to name.
func (vs Variables) Get(name string) (sanitize.Value, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v.Value, true
		}
	}
	return sanitize.Value{}, false
}

// Changed reports whether vs differs from prev by key count or by any
// value of a shared key. Values are compared as captured, not deeply.
func (vs Variables) Changed(prev Variables) bool {
	if len(vs) != len(prev) {
		return true
	}
	for _, v := range vs {
		old, ok := prev.Get(v.Name)
		if !ok || !old.Equal(v.Value) {
			return true
		}
	}
	return false
}

func (vs Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range vs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := v.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (vs *Variables) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*vs = nil
		return nil
	}
	out := Variables{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v sanitize.Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Variable{Name: name, Value: v})
	}
	*vs = out
	return nil
}

// ErrorDetails describes the failure carried by a synthetic error state.
type ErrorDetails struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

// RawState is one instrumentation event. States are appended in execution
// order and never mutated afterwards, except that the final state of a run
// receives the buffered output.
type RawState struct {
	EventType    EventType       `json:"eventType"`
	Line         int             `json:"lineNumber"`
	Function     string          `json:"functionName"`
	Variables    Variables       `json:"variables"`
	CallStack    []StackFrame    `json:"callStack"`
	CallID       CallID          `json:"callId"`
	ParentID     CallID          `json:"parentId"`
	StackDepth   int             `json:"stackDepth"`
	ReturnValue  *sanitize.Value `json:"returnValue,omitempty"`
	Error        bool            `json:"error,omitempty"`
	ErrorDetails *ErrorDetails   `json:"errorDetails,omitempty"`
	Output       *string         `json:"output,omitempty"`
	ErrorOutput  string          `json:"error_output,omitempty"`
}

// Outcome summarizes how a run ended.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeException   Outcome = "exception"
	OutcomeSyntaxError Outcome = "syntax_error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeStepLimit   Outcome = "step_limit"
)
