package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_History(t *testing.T) {
	s := NewSession()
	s.AddHistory("SELECT u FROM User u")
	s.AddHistory("SELECT p FROM Post p")

	h := s.History()
	assert.Equal(t, []string{"SELECT u FROM User u", "SELECT p FROM Post p"}, h)

	h[0] = "mutated"
	assert.Equal(t, "SELECT u FROM User u", s.History()[0], "History returns a copy")

	s.ClearHistory()
	assert.Empty(t, s.History())
}

func TestSession_HistoryBounded(t *testing.T) {
	s := NewSession()
	for i := 0; i < maxHistory+5; i++ {
		s.AddHistory("q")
	}
	assert.Len(t, s.History(), maxHistory)
}

func TestSession_Parameters(t *testing.T) {
	s := NewSession()
	s.SetParameter("min", "18")
	assert.Equal(t, map[string]string{"min": "18"}, s.Parameters())
	assert.True(t, s.UnsetParameter("min"))
	assert.False(t, s.UnsetParameter("min"))

	snap := s.Snapshot()
	assert.Equal(t, s.ID, snap.ID)
	assert.Empty(t, snap.Parameters)
}

func TestManager_GetExpires(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	s := m.Create()
	require.Same(t, s, m.Get(s.ID))
	assert.Nil(t, m.Get("missing"))

	idle := NewManager(time.Hour, time.Nanosecond)
	s = idle.Create()
	time.Sleep(time.Millisecond)
	assert.Nil(t, idle.Get(s.ID))
	assert.Equal(t, 0, idle.Len())
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager(time.Nanosecond, time.Hour)
	m.Create()
	m.Create()
	time.Sleep(time.Millisecond)
	m.Cleanup()
	assert.Equal(t, 0, m.Len())
}

func TestManager_Run(t *testing.T) {
	m := NewManager(time.Nanosecond, time.Hour)
	m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
