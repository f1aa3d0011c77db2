package harness

import (
	"fmt"
	"strings"
)

// fingerprintWidth is how many hex digits of a fingerprint Render prints.
const fingerprintWidth = 12

// Render formats a result as stable plain text. Schema hashes are left out;
// the snapshot fingerprint is shortened.
func Render(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Scenario)
	fmt.Fprintf(&b, "pass: %t\n", r.Pass)

	for _, inst := range r.Instances {
		b.WriteString("\n")
		renderInstance(&b, inst)
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nerrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return b.String()
}

func renderInstance(b *strings.Builder, inst InstanceReport) {
	fmt.Fprintf(b, "instance %s (%s)\n", inst.Label, inst.InstanceID)
	fmt.Fprintf(b, "  entities: %s\n", strings.Join(inst.Entities, ", "))
	fmt.Fprintf(b, "  snapshot: %s\n", shorten(inst.Fingerprint))

	if len(inst.Delta) == 0 {
		b.WriteString("  delta: none\n")
	} else {
		b.WriteString("  delta:\n")
		for _, rec := range inst.Delta {
			fmt.Fprintf(b, "    - %s\n", rec)
		}
	}

	if inst.FullDiff != "" {
		b.WriteString("  full diff:\n")
		for _, line := range strings.Split(strings.TrimRight(inst.FullDiff, "\n"), "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}

	for i, fork := range inst.Forks {
		fmt.Fprintf(b, "  fork %d\n", i+1)
		for _, ref := range fork.Persisted {
			fmt.Fprintf(b, "    persisted %s#%d\n", ref.Class, ref.ID)
		}
		for _, f := range fork.Found {
			query := f.Query
			if len(f.Where) > 0 {
				query += " " + formatFields(f.Where)
			}
			if f.Entity == nil {
				fmt.Fprintf(b, "    find %s -> nothing\n", query)
				continue
			}
			fmt.Fprintf(b, "    find %s -> %s#%d %s\n", query, f.Entity.Class, f.Entity.ID, formatFields(f.Fields))
		}
	}
}

func shorten(fingerprint string) string {
	if len(fingerprint) > fingerprintWidth {
		return fingerprint[:fingerprintWidth]
	}
	return fingerprint
}
