// Package repositories implements the property graph store the sync engine writes into.
//
// A graph is made of [models.Node] values identified by (kind, key) and [models.Relationship] values
// identified by (type, source, target). Every write is a merge: repeating it changes nothing, and
// attributes are overwritten one at a time so a partial update never erases stored values.
//
// Key Implementations:
//   - [SQLiteStore] : default backend, three tables managed by the shared migrations
//   - [Neo4jStore] : Neo4j backend, one label per kind with a uniqueness constraint on the key field
//
// [Open] picks a backend from the [graph] section of the config file.
package repositories
