package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// FullDiff renders every structural difference between two snapshots,
// including classes that appeared or disappeared. It returns "" when the
// snapshots are identical.
//
// FullDiff is a reading aid. Drift detection is Compare's job.
func FullDiff(prev, cur Snapshot) (string, error) {
	left, err := json.Marshal(nonNil(prev))
	if err != nil {
		return "", fmt.Errorf("failed to marshal previous snapshot: %w", err)
	}
	right, err := json.Marshal(nonNil(cur))
	if err != nil {
		return "", fmt.Errorf("failed to marshal current snapshot: %w", err)
	}

	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", fmt.Errorf("failed to compare snapshots: %w", err)
	}
	if !delta.Modified() {
		return "", nil
	}

	var jdoc map[string]interface{}
	if err := json.Unmarshal(left, &jdoc); err != nil {
		return "", fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	f := formatter.NewAsciiFormatter(jdoc, formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       false,
	})
	return f.Format(delta)
}

func nonNil(s Snapshot) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return s
}
