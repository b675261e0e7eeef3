package models

import (
	"fmt"
	"maps"
	"strings"
)

// RelType names a relationship type.
type RelType string

const (
	Follows    RelType = "FOLLOWS"
	Owns       RelType = "OWNS"
	Includes   RelType = "INCLUDES"
	OnAlbum    RelType = "ON_ALBUM"
	Released   RelType = "RELEASED"
	Performs   RelType = "PERFORMS"
	GenreAssoc RelType = "GENRE_ASSOC"
)

// ErrInvalidRelationship is returned when endpoints do not match the [Schema].
var ErrInvalidRelationship = fmt.Errorf("relationship does not match schema")

// Pattern is one permitted (source)-[type]->(target) triple.
type Pattern struct {
	Source Kind
	Type   RelType
	Target Kind
}

func (p Pattern) String() string {
	return fmt.Sprintf("(%s)-[%s]->(%s)", p.Source, p.Type, p.Target)
}

// Schema lists every relationship the graph may hold.
//
// Album genres are declared but never populated by sync: the catalog leaves album genre lists empty.
var Schema = []Pattern{
	{User, Follows, Playlist},
	{User, Owns, Playlist},
	{Playlist, Includes, Song},
	{Song, OnAlbum, Album},
	{Artist, Released, Album},
	{Artist, Performs, Song},
	{Artist, GenreAssoc, Genre},
	{Album, GenreAssoc, Genre},
}

// Allowed reports whether the triple appears in [Schema].
func Allowed(source Kind, rel RelType, target Kind) bool {
	for _, p := range Schema {
		if p.Source == source && p.Type == rel && p.Target == target {
			return true
		}
	}
	return false
}

// ParseRelType accepts a relationship type name in any letter case.
func ParseRelType(s string) (RelType, error) {
	want := RelType(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range Schema {
		if p.Type == want {
			return want, nil
		}
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidRelationship, s)
}

// Relationship is a directed, typed edge. Identity is (Type, Source, Target).
type Relationship struct {
	Type   RelType
	Source Ref
	Target Ref
	Attrs  map[string]any
}

// NewRelationship validates endpoints against [Schema]. Nil attribute values are dropped.
func NewRelationship(rel RelType, source, target Ref, attrs map[string]any) (*Relationship, error) {
	if source.Key == "" || target.Key == "" {
		return nil, fmt.Errorf("%w: %s %s -> %s", ErrNoneAsKey, rel, source, target)
	}
	if !Allowed(source.Kind, rel, target.Kind) {
		return nil, fmt.Errorf("%w: (%s)-[%s]->(%s)", ErrInvalidRelationship, source.Kind, rel, target.Kind)
	}

	r := &Relationship{Type: rel, Source: source, Target: target, Attrs: map[string]any{}}
	for k, v := range attrs {
		if v != nil {
			r.Attrs[k] = v
		}
	}
	return r, nil
}

// Properties returns a copy of the relationship attributes.
func (r *Relationship) Properties() map[string]any {
	props := maps.Clone(r.Attrs)
	if props == nil {
		props = map[string]any{}
	}
	return props
}

func (r *Relationship) String() string {
	return fmt.Sprintf("%s-[%s]->%s", r.Source, r.Type, r.Target)
}
