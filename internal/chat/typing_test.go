package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingTracker_RearmExtendsExpiry(t *testing.T) {
	tr := NewTypingTracker(80*time.Millisecond, nil)
	defer tr.Stop()

	tr.Set("a", true)
	time.Sleep(50 * time.Millisecond)
	tr.Set("a", true)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, tr.IsTyping("a"), "second signal restarts the expiry")

	assert.Eventually(t, func() bool { return !tr.IsTyping("a") }, time.Second, 5*time.Millisecond)
}

func TestTypingTracker_ActiveSortedAndStop(t *testing.T) {
	var changes atomic.Int32
	tr := NewTypingTracker(time.Hour, func() { changes.Add(1) })

	tr.Set("zed", true)
	tr.Set("amy", true)
	tr.Set("amy", true)
	assert.Equal(t, []string{"amy", "zed"}, tr.Active())
	assert.EqualValues(t, 2, changes.Load(), "re-setting a flag is not a change")

	tr.Stop()
	assert.Empty(t, tr.Active())
}

func TestTypingNotifier_OneStartOneStop(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	n := newTypingNotifier(60*time.Millisecond, func(ft string) bool {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, ft)
		return true
	})
	got := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sent...)
	}

	for i := 0; i < 4; i++ {
		n.notify(true)
		time.Sleep(15 * time.Millisecond)
	}
	require.Equal(t, []string{FrameTypingStart}, got())

	require.Eventually(t, func() bool { return len(got()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{FrameTypingStart, FrameTypingStop}, got())

	n.notify(true)
	n.reset()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{FrameTypingStart, FrameTypingStop, FrameTypingStart}, got())
}
