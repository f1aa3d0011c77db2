package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSchema   = "stiprobe/schema/v1"
	DomainSnapshot = "stiprobe/snapshot/v1"
)

// HashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaHash identifies a set of entity schemas. The order of schemas and
// of their properties is part of the identity.
func SchemaHash(schemas []EntitySchema) (string, error) {
	list := make([]any, len(schemas))
	for i, s := range schemas {
		list[i] = s.canonicalMap()
	}
	canonical, err := MarshalCanonical(map[string]any{
		"ir_version": IRVersion,
		"entities":   list,
	})
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return HashWithDomain(DomainSchema, canonical), nil
}

func (s EntitySchema) canonicalMap() map[string]any {
	props := make([]any, len(s.Properties))
	for i, p := range s.Properties {
		props[i] = map[string]any{
			"name":                p.Name,
			"kind":                string(p.Kind),
			"type":                p.Type,
			"primary":             p.Primary,
			"nullable":            p.Nullable,
			"entity":              p.Entity,
			"mapped_by":           p.MappedBy,
			"owner":               p.Owner,
			"pivot_table":         p.PivotTable,
			"join_column":         p.JoinColumn,
			"inverse_join_column": p.InverseJoinColumn,
		}
	}
	return map[string]any{
		"name":                 s.Name,
		"extends":              s.Extends,
		"table":                s.Table,
		"discriminator_column": s.DiscriminatorColumn,
		"discriminator_value":  s.DiscriminatorValue,
		"properties":           props,
	}
}
