// Package invalidation tells downstream readers that cached call views are stale.
package invalidation

import "time"

// View names a cached projection of call data
type View string

// Views
const (
	ViewDetail View = "cfs_detail"
	ViewList   View = "cfs_list"
)

// Signal marks the given views of one call as stale
type Signal struct {
	CallID    int64     `json:"cfsId"`
	Views     []View    `json:"views"`
	Timestamp time.Time `json:"timestamp"`
	// Origin names the process that raised the signal
	Origin string `json:"origin,omitempty"`
}

// Signaler publishes invalidation signals. Implementations must not block the caller.
type Signaler interface {
	Signal(s Signal)
}

// Fanout sends every signal to each of its signalers
type Fanout []Signaler

// Signal forwards s
func (f Fanout) Signal(s Signal) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	for _, sig := range f {
		if sig != nil {
			sig.Signal(s)
		}
	}
}
