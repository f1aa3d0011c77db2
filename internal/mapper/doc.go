// Package mapper is a small single-table-inheritance object mapper over
// SQLite.
//
// Each Mapper discovers a list of entity schemas into its own
// MetadataStorage, owns one store (an in-memory database by default) and
// hands out EntityManager forks for persisting and loading entities. There
// is no identity map, change tracking or relation loading: a Mapper exists
// to be initialised, exercised briefly and closed, so that its discovered
// metadata can be compared with that of the next instance.
//
// Every entity of a hierarchy lives in the root's table. The discriminator
// column tells the classes apart, and owning many-to-many relations get a
// pivot table.
package mapper
