package session

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/debugger"
	"github.com/yousuf/stepbyte/internal/trace"
)

func TestGetOrCreateSession(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreateSession("a")
	require.Same(t, a, m.GetOrCreateSession("a"))
	require.Same(t, a, m.GetSession("a"))
	require.Nil(t, m.GetSession("b"))
	require.Equal(t, 1, m.Len())

	var wg sync.WaitGroup
	got := make([]*SessionContext, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.GetOrCreateSession("shared")
		}(i)
	}
	wg.Wait()
	for _, s := range got {
		require.Same(t, got[0], s)
	}
}

func TestSessionResult(t *testing.T) {
	s := NewSessionContext("a")
	require.Nil(t, s.Result())
	res := &debugger.Result{Outcome: trace.OutcomeCompleted}
	s.SetResult(res)
	require.Same(t, res, s.Result())
}

func TestDeleteAndPrune(t *testing.T) {
	m := NewManager()
	m.GetOrCreateSession("a")
	require.NoError(t, m.DeleteSession("a"))
	require.True(t, errors.Is(m.DeleteSession("a"), ErrSessionNotFound))

	old := m.GetOrCreateSession("old")
	old.mu.Lock()
	old.lastAccessed = time.Now().Add(-time.Hour)
	old.mu.Unlock()
	m.GetOrCreateSession("fresh")

	require.Equal(t, 1, m.PruneIdle(time.Minute))
	require.Nil(t, m.GetSession("old"))
	require.NotNil(t, m.GetSession("fresh"))

	m.CloseAll()
	require.Equal(t, 0, m.Len())
}
