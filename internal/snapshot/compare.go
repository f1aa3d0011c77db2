package snapshot

// Take builds a Snapshot from mapper metadata. A nil entry panics.
func Take(entities map[string]Metadata) Snapshot {
	snap := make(Snapshot, len(entities))
	for name, meta := range entities {
		snap[name] = EntityDescriptor{
			ClassName:     name,
			Properties:    append([]string{}, meta.PropertyNames()...),
			Relationships: append([]string{}, meta.RelationNames()...),
		}
	}
	return snap
}

// Compare reports drift from prev to cur for classes present in both.
// Records are ordered by class name; a class's property record precedes its
// relationship record. An empty prev yields an empty Delta.
func Compare(prev, cur Snapshot) Delta {
	var delta Delta
	if len(prev) == 0 {
		return delta
	}

	for _, name := range cur.ClassNames() {
		before, ok := prev[name]
		if !ok {
			continue
		}
		now := cur[name]

		known := make(map[string]bool, len(before.Properties))
		for _, p := range before.Properties {
			known[p] = true
		}
		var added []string
		for _, p := range now.Properties {
			if !known[p] {
				added = append(added, p)
			}
		}
		if len(added) > 0 {
			delta = append(delta, Change{
				ClassName:     name,
				Kind:          ChangeProperties,
				NewProperties: added,
			})
		}

		if diff := len(now.Relationships) - len(before.Relationships); diff != 0 {
			delta = append(delta, Change{
				ClassName:         name,
				Kind:              ChangeRelationships,
				RelationshipDelta: diff,
			})
		}
	}
	return delta
}
