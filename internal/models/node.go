package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind names a node type. It doubles as the primary graph label.
type Kind string

const (
	User     Kind = "User"
	Playlist Kind = "Playlist"
	Song     Kind = "Song"
	Album    Kind = "Album"
	Artist   Kind = "Artist"
	Genre    Kind = "Genre"
)

// FriendLabel marks users whose followed playlists are mirrored.
const FriendLabel = "Friend"

// Kinds lists every node kind in sync dependency order.
var Kinds = []Kind{User, Playlist, Song, Album, Artist, Genre}

// ErrNoneAsKey is returned when a node is built without a natural key.
var ErrNoneAsKey = fmt.Errorf("node key must not be empty")

// ErrUnknownKind is returned for a kind outside [Kinds].
var ErrUnknownKind = fmt.Errorf("unknown node kind")

// KeyField is the attribute name holding the natural key.
func (k Kind) KeyField() string {
	if k == Genre {
		return "name"
	}
	return "id"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// ParseKind accepts a kind name in any letter case.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Ref points at a node without carrying its attributes.
type Ref struct {
	Kind Kind
	Key  string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Key)
}

// Node is one vertex of the graph.
//
// Attrs never contain the key field. Labels holds extra labels beyond the kind.
type Node struct {
	Kind   Kind
	Key    string
	Labels []string
	Attrs  map[string]any
}

// NewNode builds a node of any kind. Nil attribute values are dropped so a merge never erases stored data.
func NewNode(kind Kind, key string, attrs map[string]any, labels ...string) (*Node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoneAsKey, kind)
	}

	n := &Node{Kind: kind, Key: key, Attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		if v == nil || k == kind.KeyField() {
			continue
		}
		n.Attrs[k] = v
	}
	for _, l := range labels {
		n.AddLabel(l)
	}
	return n, nil
}

// Ref returns the node's reference.
func (n *Node) Ref() Ref {
	return Ref{Kind: n.Kind, Key: n.Key}
}

// HasLabel reports whether the node carries label. The kind counts as a label.
func (n *Node) HasLabel(label string) bool {
	return label == string(n.Kind) || slices.Contains(n.Labels, label)
}

// AddLabel attaches an extra label once.
func (n *Node) AddLabel(label string) {
	if label == "" || n.HasLabel(label) {
		return
	}
	n.Labels = append(n.Labels, label)
	slices.Sort(n.Labels)
}

// String returns the node's "name" attribute when set, otherwise its key.
func (n *Node) String() string {
	if name, ok := n.Attrs["name"].(string); ok && name != "" {
		return name
	}
	return n.Key
}

// Properties returns attributes plus the key field, the shape graph databases store.
func (n *Node) Properties() map[string]any {
	props := maps.Clone(n.Attrs)
	if props == nil {
		props = map[string]any{}
	}
	props[n.Kind.KeyField()] = n.Key
	return props
}

// NewUserNode builds a User node.
func NewUserNode(id, name string, labels ...string) (*Node, error) {
	return NewNode(User, id, map[string]any{"name": name}, labels...)
}

// NewFriendNode builds a User node carrying [FriendLabel].
func NewFriendNode(id, name string) (*Node, error) {
	return NewUserNode(id, name, FriendLabel)
}

// NewPlaylistNode builds a Playlist node.
func NewPlaylistNode(id, name string) (*Node, error) {
	return NewNode(Playlist, id, map[string]any{"name": name})
}

// NewSongNode builds a Song node. Duration is in milliseconds.
func NewSongNode(id, name string, popularity, duration int) (*Node, error) {
	return NewNode(Song, id, map[string]any{"name": name, "popularity": popularity, "duration": duration})
}

// NewAlbumNode builds an Album node.
func NewAlbumNode(id, name string, popularity int, releaseDate string) (*Node, error) {
	return NewNode(Album, id, map[string]any{"name": name, "popularity": popularity, "release_date": releaseDate})
}

// NewArtistNode builds an Artist node.
func NewArtistNode(id, name string, popularity int) (*Node, error) {
	return NewNode(Artist, id, map[string]any{"name": name, "popularity": popularity})
}

// NewGenreNode builds a Genre node keyed by its name.
func NewGenreNode(name string) (*Node, error) {
	return NewNode(Genre, name, nil)
}
