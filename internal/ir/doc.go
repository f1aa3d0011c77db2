// Package ir holds the entity schema descriptors that the compiler produces
// and the mapper consumes.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Property order is declaration order and is significant for reporting
//   - NO float types in canonical JSON - numbers are int64
//   - All JSON tags use snake_case
package ir
