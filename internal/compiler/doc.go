// Package compiler turns CUE entity descriptors into ir.EntitySchema values
// and checks that a set of descriptors forms consistent single-table
// inheritance hierarchies.
//
// # Descriptor Format
//
//	package sti
//
//	entity: BaseEntity: {
//	    discriminator_column: "type"
//	    discriminator_value:  "base"
//	    properties: {
//	        id:     {type: "number", primary: true}
//	        name:   {type: "string"}
//	        parent: {kind: "m:1", entity: "ParentEntity", nullable: true}
//	    }
//	}
//
//	entity: MidEntity: {
//	    extends:             "BaseEntity"
//	    discriminator_value: "mid"
//	    properties: {
//	        items: {kind: "m:n", entity: "BaseEntity", owner: true, pivot_table: "base_entity_mid"}
//	    }
//	}
//
// Property order follows declaration order. Properties without a kind are
// scalars and need a type.
package compiler
