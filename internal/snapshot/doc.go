// Package snapshot records what a mapper instance reports as discovered
// metadata and reports drift between successive captures.
//
// A Differ owns a single "previous" Snapshot slot. Capture compares the new
// metadata against that slot and then replaces it, so each capture is
// compared against the capture immediately before it, regardless of which
// mapper instance produced either one.
//
// # Comparison policy
//
// Only classes present in both snapshots are compared:
//
//   - properties present now and absent before are reported as
//     "<class>: +<n> properties (<names>)"
//   - a change in relationship count is reported as
//     "<class>: +<n> relationships" or "<class>: -<n> relationships"
//
// Classes that appear or disappear between captures produce no record. The
// harness looks for drift inside entities that are expected to be
// identical, not for changes to the entity set. FullDiff renders the
// complete structural difference when that is needed.
//
// # Usage
//
//	d := snapshot.New(snapshot.WithLogger(logger))
//	delta := d.Capture(snapshot.Entities(m.Metadata().GetAll()), "orm1")
//	for _, c := range delta {
//	    fmt.Println(c)
//	}
package snapshot
