// Package clock provides Clock implementations for document timestamps.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/contentgate/ports"
)

// Precision is the resolution stores persist timestamps at.
const Precision = time.Microsecond

// Real reads the wall clock in UTC at store precision.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// Fake is a manual clock. With a non-zero step every reading moves it
// forward, so successive writes get distinct timestamps.
type Fake struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

// NewFake returns a clock stopped at t.
func NewFake(t time.Time) *Fake {
	return &Fake{at: t.UTC().Truncate(Precision)}
}

// NewTicking returns a clock at t that advances by step after each read.
func NewTicking(t time.Time, step time.Duration) *Fake {
	f := NewFake(t)
	f.step = step
	return f
}

// Now returns the clock's time, then applies the step.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.at
	f.at = f.at.Add(f.step)
	return now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.at = f.at.Add(d)
	f.mu.Unlock()
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Fake)(nil)
)
