package models

import (
	"errors"
	"testing"
)

func TestNodes(t *testing.T) {
	t.Run("factories", func(t *testing.T) {
		tc := []struct {
			name  string
			build func() (*Node, error)
			kind  Kind
			key   string
			attrs []string
		}{
			{"User", func() (*Node, error) { return NewUserNode("u1", "Ada") }, User, "u1", []string{"name"}},
			{"Playlist", func() (*Node, error) { return NewPlaylistNode("p1", "Mix") }, Playlist, "p1", []string{"name"}},
			{"Song", func() (*Node, error) { return NewSongNode("s1", "Tune", 40, 180000) }, Song, "s1", []string{"name", "popularity", "duration"}},
			{"Album", func() (*Node, error) { return NewAlbumNode("a1", "LP", 10, "2020-03") }, Album, "a1", []string{"name", "popularity", "release_date"}},
			{"Artist", func() (*Node, error) { return NewArtistNode("r1", "Band", 70) }, Artist, "r1", []string{"name", "popularity"}},
			{"Genre", func() (*Node, error) { return NewGenreNode("shoegaze") }, Genre, "shoegaze", nil},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				n, err := tt.build()
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if n.Kind != tt.kind || n.Key != tt.key {
					t.Errorf("expected %s(%s), got %s", tt.kind, tt.key, n.Ref())
				}
				for _, a := range tt.attrs {
					if _, ok := n.Attrs[a]; !ok {
						t.Errorf("expected attribute %s to be set", a)
					}
				}
				if _, ok := n.Attrs[tt.kind.KeyField()]; ok {
					t.Errorf("key field %s should not be stored as an attribute", tt.kind.KeyField())
				}
			})
		}
	})

	t.Run("empty key", func(t *testing.T) {
		for _, build := range []func() (*Node, error){
			func() (*Node, error) { return NewUserNode("", "Ada") },
			func() (*Node, error) { return NewSongNode("", "Tune", 0, 0) },
			func() (*Node, error) { return NewGenreNode("") },
		} {
			if _, err := build(); !errors.Is(err, ErrNoneAsKey) {
				t.Errorf("expected ErrNoneAsKey, got %v", err)
			}
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := NewNode(Kind("Podcast"), "x", nil); !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("friend label", func(t *testing.T) {
		n, err := NewFriendNode("u1", "Ada")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !n.HasLabel(FriendLabel) || !n.HasLabel("User") {
			t.Errorf("expected User and Friend labels, got %v", n.Labels)
		}
		n.AddLabel(FriendLabel)
		if len(n.Labels) != 1 {
			t.Errorf("expected label to be added once, got %v", n.Labels)
		}
	})

	t.Run("nil attributes are dropped", func(t *testing.T) {
		n, _ := NewNode(Album, "a1", map[string]any{"name": nil, "popularity": 3})
		if _, ok := n.Attrs["name"]; ok {
			t.Error("expected nil name to be dropped")
		}
	})

	t.Run("Properties includes key field", func(t *testing.T) {
		g, _ := NewGenreNode("jazz")
		if g.Properties()["name"] != "jazz" {
			t.Errorf("expected name=jazz, got %v", g.Properties())
		}
		s, _ := NewSongNode("s1", "Tune", 1, 2)
		if s.Properties()["id"] != "s1" {
			t.Errorf("expected id=s1, got %v", s.Properties())
		}
	})

	t.Run("ParseKind", func(t *testing.T) {
		k, err := ParseKind("album")
		if err != nil || k != Album {
			t.Errorf("expected Album, got %v (%v)", k, err)
		}
		if _, err := ParseKind("nope"); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}

func TestRelationships(t *testing.T) {
	user := Ref{User, "u1"}
	playlist := Ref{Playlist, "p1"}
	song := Ref{Song, "s1"}
	artist := Ref{Artist, "r1"}

	t.Run("valid", func(t *testing.T) {
		r, err := NewRelationship(Includes, playlist, song, map[string]any{"added_at": "2021-01-01T00:00:00Z", "added_by": nil})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := r.Attrs["added_by"]; ok {
			t.Error("expected nil attribute to be dropped")
		}
		if r.String() != "Playlist(p1)-[INCLUDES]->Song(s1)" {
			t.Errorf("unexpected string %s", r.String())
		}
	})

	t.Run("wrong endpoints", func(t *testing.T) {
		tc := []struct {
			name   string
			rel    RelType
			source Ref
			target Ref
		}{
			{"OWNS from playlist", Owns, playlist, user},
			{"PERFORMS reversed", Performs, song, artist},
			{"INCLUDES user", Includes, user, song},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := NewRelationship(tt.rel, tt.source, tt.target, nil); !errors.Is(err, ErrInvalidRelationship) {
					t.Errorf("expected ErrInvalidRelationship, got %v", err)
				}
			})
		}
	})

	t.Run("empty endpoint key", func(t *testing.T) {
		if _, err := NewRelationship(Follows, Ref{User, ""}, playlist, nil); !errors.Is(err, ErrNoneAsKey) {
			t.Errorf("expected ErrNoneAsKey, got %v", err)
		}
	})

	t.Run("ParseRelType", func(t *testing.T) {
		r, err := ParseRelType("on_album")
		if err != nil || r != OnAlbum {
			t.Errorf("expected ON_ALBUM, got %v (%v)", r, err)
		}
	})
}
