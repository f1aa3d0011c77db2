package snapshot

import (
	"encoding/json"
	"sync"

	"github.com/apex/log"

	stilog "github.com/roach88/stiprobe/internal/log"
)

// Differ holds the previous Snapshot and compares each capture against it.
//
// The slot is shared by every mapper instance fed into the same Differ. Use
// one Differ per independent scenario, or Reset between scenarios.
//
// Thread-safety: Capture, CaptureWithPrevious, Reset and Previous are serialised by a mutex, so
// concurrent callers each compare against the capture that immediately
// preceded theirs.
type Differ struct {
	mu       sync.Mutex
	previous Snapshot
	logger   log.Interface
}

// Option customises a Differ.
type Option func(*Differ)

// WithLogger sets the logger used for discovery and change lines.
func WithLogger(l log.Interface) Option {
	return func(d *Differ) { d.logger = l }
}

// New creates a Differ with an empty previous slot.
func New(opts ...Option) *Differ {
	d := &Differ{
		previous: Snapshot{},
		logger:   stilog.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capture snapshots entities, compares them with the previous capture and
// stores the new snapshot in its place. The first capture after New or
// Reset returns an empty Delta.
//
// Every line is logged with contextLabel, in call order.
func (d *Differ) Capture(entities map[string]Metadata, contextLabel string) Delta {
	delta, _ := d.CaptureWithPrevious(entities, contextLabel)
	return delta
}

// CaptureWithPrevious is Capture that also returns the snapshot the capture
// was compared against. The comparison and the swap happen under one lock,
// so the returned snapshot is exactly the one Delta was computed from.
func (d *Differ) CaptureWithPrevious(entities map[string]Metadata, contextLabel string) (Delta, Snapshot) {
	cur := Take(entities)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.logDiscovered(cur, contextLabel)

	prev := d.previous
	delta := Compare(prev, cur)
	if len(delta) > 0 {
		d.logger.Infof("[%s] Changes from previous mapper instance:", contextLabel)
		for _, c := range delta {
			d.logger.Infof("  - %s", c)
		}
	}

	d.previous = cur
	return delta, prev
}

// Reset empties the previous slot.
func (d *Differ) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previous = Snapshot{}
}

// Previous returns a copy of the stored snapshot.
func (d *Differ) Previous() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.previous.Clone()
}

func (d *Differ) logDiscovered(cur Snapshot, contextLabel string) {
	d.logger.Debugf("[%s] Discovered entities:", contextLabel)
	data, err := json.MarshalIndent(cur.Descriptors(), "", "  ")
	if err != nil {
		d.logger.WithError(err).Warnf("[%s] could not render discovered entities", contextLabel)
		return
	}
	d.logger.Debug(string(data))
}
