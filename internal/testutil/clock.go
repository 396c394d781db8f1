package testutil

import (
	"strconv"
	"sync"
	"time"

	"qrganizer/internal/inventory"
)

// Epoch is the time every test clock starts at unless told otherwise.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// Clock is an inventory.Clock that only moves when the test moves it.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

var _ inventory.Clock = (*Clock)(nil)

// NewClock returns a Clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// FixedClock returns a Clock reading Epoch.
func FixedClock() *Clock {
	return NewClock(Epoch)
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SequentialIDs hands out "id-1", "id-2", ... as operation ids.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

var _ inventory.IDGenerator = (*SequentialIDs)(nil)

func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

func (g *SequentialIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}
