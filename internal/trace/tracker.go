package trace

import "strconv"

// Tracker assigns call identities and maintains the live call stack and the
// hierarchy of every call made during a run.
type Tracker struct {
	counter int
	stack   []*CallRecord
	records []*CallRecord
	byID    map[CallID]*CallRecord
}

func NewTracker() *Tracker {
	return &Tracker{byID: make(map[CallID]*CallRecord)}
}

// Push records a new call to function entered at line. The caller on top of
// the stack becomes its parent.
func (t *Tracker) Push(function string, line int) *CallRecord {
	t.counter++
	rec := &CallRecord{
		CallID:     CallID(function + "_" + strconv.Itoa(t.counter)),
		Function:   function,
		EntryLine:  line,
		StackDepth: len(t.stack),
		Children:   []CallID{},
	}
	if parent := t.Top(); parent != nil {
		rec.ParentID = parent.CallID
		parent.Children = append(parent.Children, rec.CallID)
	}
	t.stack = append(t.stack, rec)
	t.records = append(t.records, rec)
	t.byID[rec.CallID] = rec
	return rec
}

// Pop removes the innermost call.
func (t *Tracker) Pop() (*CallRecord, bool) {
	if len(t.stack) == 0 {
		return nil, false
	}
	rec := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return rec, true
}

// Top returns the innermost active call, or nil.
func (t *Tracker) Top() *CallRecord {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Depth returns the number of active calls.
func (t *Tracker) Depth() int { return len(t.stack) }

// Lookup returns the record for id.
func (t *Tracker) Lookup(id CallID) (*CallRecord, bool) {
	rec, ok := t.byID[id]
	return rec, ok
}

// Stack snapshots the active calls, outermost first.
func (t *Tracker) Stack() []StackFrame {
	frames := make([]StackFrame, len(t.stack))
	for i, rec := range t.stack {
		frames[i] = StackFrame{
			Function: rec.Function,
			Line:     rec.EntryLine,
			CallID:   rec.CallID,
			ParentID: rec.ParentID,
		}
	}
	return frames
}

// Records returns copies of every call record in creation order.
func (t *Tracker) Records() []CallRecord {
	out := make([]CallRecord, len(t.records))
	for i, rec := range t.records {
		out[i] = *rec
		out[i].Children = append([]CallID{}, rec.Children...)
	}
	return out
}
