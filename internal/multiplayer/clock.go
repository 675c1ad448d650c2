package multiplayer

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules match ticks and delayed work.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Timer

	// Every runs f every period until the returned cancel func is called.
	// Cancel never waits for a running f, so it is safe to call from
	// inside f or while holding a lock f also takes.
	Every(period time.Duration, f func()) (cancel func())
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call was
	// still pending.
	Stop() bool
}

// RealClock is a Clock backed by the time package.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every runs f on a ticker goroutine.
func (RealClock) Every(period time.Duration, f func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// A tick and a cancel may be ready together.
				select {
				case <-done:
					return
				default:
				}
				f()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// FakeClock is a manually advanced Clock for tests.
// Callbacks run synchronously inside Advance, in time order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	events map[uint64]*fakeEvent
}

type fakeEvent struct {
	id     uint64
	at     time.Time
	period time.Duration // zero for one-shot timers
	f      func()
}

// NewFakeClock creates a fake clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{
		now:    start,
		events: make(map[uint64]*fakeEvent),
	}
}

// Now returns the simulated time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f at Now()+d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	id := c.schedule(d, 0, f)
	return &fakeTimer{clock: c, id: id}
}

// Every schedules f at every multiple of period from Now().
func (c *FakeClock) Every(period time.Duration, f func()) func() {
	if period <= 0 {
		period = time.Nanosecond
	}
	id := c.schedule(period, period, f)
	return func() { c.cancel(id) }
}

// Advance moves time forward by d, running every callback that comes due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		ev, ok := c.popDue(target)
		if !ok {
			break
		}
		ev.f()
	}

	c.mu.Lock()
	if c.now.Before(target) {
		c.now = target
	}
	c.mu.Unlock()
}

// Pending returns the number of scheduled callbacks.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *FakeClock) schedule(d, period time.Duration, f func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.events[c.nextID] = &fakeEvent{
		id:     c.nextID,
		at:     c.now.Add(d),
		period: period,
		f:      f,
	}
	return c.nextID
}

func (c *FakeClock) cancel(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.events[id]
	delete(c.events, id)
	return ok
}

// popDue returns the earliest event due at or before target and moves the
// clock to its time. Periodic events are rescheduled, one-shots removed.
func (c *FakeClock) popDue(target time.Time) (fakeEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	due := make([]*fakeEvent, 0, len(c.events))
	for _, ev := range c.events {
		if !ev.at.After(target) {
			due = append(due, ev)
		}
	}
	if len(due) == 0 {
		return fakeEvent{}, false
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})

	ev := due[0]
	if ev.at.After(c.now) {
		c.now = ev.at
	}
	fired := *ev
	if ev.period > 0 {
		ev.at = ev.at.Add(ev.period)
	} else {
		delete(c.events, ev.id)
	}
	return fired, true
}

type fakeTimer struct {
	clock *FakeClock
	id    uint64
}

func (t *fakeTimer) Stop() bool {
	return t.clock.cancel(t.id)
}
