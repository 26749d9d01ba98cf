package chat

import (
	"sort"
	"sync"
	"time"
)

// TypingTracker holds the typing flags of other users. Every flag set to
// true clears itself after the expiry unless set again.
type TypingTracker struct {
	mu       sync.Mutex
	expiry   time.Duration
	flags    map[string]bool
	timers   map[string]*time.Timer
	gen      map[string]uint64
	onChange func()
}

// NewTypingTracker returns a tracker; onChange may be nil and is called
// outside the tracker lock whenever a flag flips.
func NewTypingTracker(expiry time.Duration, onChange func()) *TypingTracker {
	return &TypingTracker{
		expiry:   expiry,
		flags:    map[string]bool{},
		timers:   map[string]*time.Timer{},
		gen:      map[string]uint64{},
		onChange: onChange,
	}
}

// Set records a typing signal for userID.
func (t *TypingTracker) Set(userID string, typing bool) {
	t.mu.Lock()
	t.gen[userID]++
	g := t.gen[userID]
	if timer := t.timers[userID]; timer != nil {
		timer.Stop()
		delete(t.timers, userID)
	}
	changed := t.flags[userID] != typing
	if typing {
		t.flags[userID] = true
		t.timers[userID] = time.AfterFunc(t.expiry, func() { t.expire(userID, g) })
	} else {
		delete(t.flags, userID)
	}
	t.mu.Unlock()

	if changed {
		t.changed()
	}
}

func (t *TypingTracker) expire(userID string, g uint64) {
	t.mu.Lock()
	if t.gen[userID] != g || !t.flags[userID] {
		t.mu.Unlock()
		return
	}
	delete(t.flags, userID)
	delete(t.timers, userID)
	t.mu.Unlock()

	t.changed()
}

// IsTyping reports the current flag for userID.
func (t *TypingTracker) IsTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[userID]
}

// Active returns the ids currently typing, sorted.
func (t *TypingTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.flags))
	for id := range t.flags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop cancels every pending expiry and clears all flags.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	for id, timer := range t.timers {
		timer.Stop()
		t.gen[id]++
	}
	t.timers = map[string]*time.Timer{}
	t.flags = map[string]bool{}
	t.mu.Unlock()
}

func (t *TypingTracker) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

// typingNotifier coalesces local keystrokes into one typing_start per burst
// and one typing_stop after the idle delay.
type typingNotifier struct {
	mu     sync.Mutex
	idle   time.Duration
	typing bool
	timer  *time.Timer
	gen    uint64
	send   func(frameType string) bool
}

func newTypingNotifier(idle time.Duration, send func(string) bool) *typingNotifier {
	return &typingNotifier{idle: idle, send: send}
}

func (n *typingNotifier) notify(active bool) {
	if !active {
		n.flush()
		return
	}

	n.mu.Lock()
	start := !n.typing
	n.typing = true
	n.gen++
	g := n.gen
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.idle, func() { n.fire(g) })
	n.mu.Unlock()

	if start {
		n.send(FrameTypingStart)
	}
}

func (n *typingNotifier) fire(g uint64) {
	n.mu.Lock()
	if g != n.gen || !n.typing {
		n.mu.Unlock()
		return
	}
	n.typing = false
	n.timer = nil
	n.mu.Unlock()

	n.send(FrameTypingStop)
}

// flush sends the pending typing_stop now, if any.
func (n *typingNotifier) flush() {
	n.mu.Lock()
	if !n.typing {
		n.mu.Unlock()
		return
	}
	n.typing = false
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	n.send(FrameTypingStop)
}

// reset forgets the burst without sending anything; used when the socket is gone.
func (n *typingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typing = false
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
