// Package models defines the entity graph mirrored from a listening library.
//
// Six node kinds are identified by a natural key:
//   - [User], [Playlist], [Song], [Album] and [Artist] by provider id
//   - [Genre] by name
//
// Nodes are built through per-kind factories ([NewUserNode], [NewSongNode], ...) which reject an empty key with [ErrNoneAsKey].
//
// Relationships are directed and typed. [Schema] lists every permitted (source kind, type, target kind) triple
// and [NewRelationship] refuses anything outside it with [ErrInvalidRelationship].
package models
