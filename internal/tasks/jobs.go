package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// userNode builds a User node, leaving the name unset when the remote sent none.
func userNode(id, name string, labels ...string) (*models.Node, error) {
	attrs := map[string]any{}
	if name != "" {
		attrs["name"] = name
	}
	return models.NewNode(models.User, id, attrs, labels...)
}

func trackID(t services.SpotifyTrack) string   { return t.ID }
func albumID(a services.SpotifyAlbum) string   { return a.ID }
func artistID(a services.SpotifyArtist) string { return a.ID }

// friends merges one Friend-labelled User node per configured id.
func (p *pass) friends(ctx context.Context, ids []string) error {
	ids = shared.Unique(ids)
	p.result.Anchors = len(ids)
	if len(ids) == 0 {
		p.logger.Warn("no friends configured, set graph.friends in the config file")
		return nil
	}

	for i, id := range ids {
		user, err := p.engine.source.User(ctx, id)
		if isNotFound(err) {
			p.logger.Warn("friend not found", "id", id)
			p.skip([]string{id})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch user %s: %w", id, err)
		}

		node, err := userNode(id, user.DisplayName, models.FriendLabel)
		if err != nil {
			return err
		}
		if err := p.mergeNode(ctx, node); err != nil {
			return err
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(ids)))
	}
	return nil
}

// playlists links every friend to the playlists they follow and every owner to what they own.
// Owners and named playlists are merged from the listing; a playlist listed without a name is deferred
// and fetched one at a time.
func (p *pass) playlists(ctx context.Context) error {
	friends, err := p.engine.store.FindLabeled(ctx, models.User, models.FriendLabel)
	if err != nil {
		return fmt.Errorf("failed to scan friends: %w", err)
	}
	p.result.Anchors = len(friends)
	sendProgress(p.progress, scanUpdate(p.job, len(friends)))

	for i, friend := range friends {
		lists, err := p.engine.source.UserPlaylists(ctx, friend.Key)
		if isNotFound(err) {
			p.logger.Warn("friend no longer exists", "id", friend.Key)
			p.skip([]string{friend.Key})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch playlists of %s: %w", friend.Key, err)
		}

		for _, pl := range lists {
			if pl.ID == "" {
				continue
			}
			target := models.Ref{Kind: models.Playlist, Key: pl.ID}
			if pl.Name != "" {
				node, err := models.NewPlaylistNode(pl.ID, pl.Name)
				if err != nil {
					return err
				}
				if err := p.mergeNode(ctx, node); err != nil {
					return err
				}
			}

			if err := p.link(ctx, link{rel: models.Follows, anchor: friend.Ref(), other: target}); err != nil {
				return err
			}

			if pl.Owner.ID == "" {
				continue
			}
			owner, err := userNode(pl.Owner.ID, pl.Owner.DisplayName)
			if err != nil {
				return err
			}
			if err := p.mergeNode(ctx, owner); err != nil {
				return err
			}
			if err := p.link(ctx, link{rel: models.Owns, anchor: owner.Ref(), other: target}); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(friends)))
	}

	return p.resolve(ctx, p.fetchPlaylists)
}

// songs links playlists to their tracks. Local files and removed tracks have no id and are ignored.
func (p *pass) songs(ctx context.Context) error {
	playlists, err := p.engine.anchors(ctx, models.Playlist, models.Includes)
	if err != nil {
		return fmt.Errorf("failed to scan playlists: %w", err)
	}
	p.result.Anchors = len(playlists)
	sendProgress(p.progress, scanUpdate(p.job, len(playlists)))

	for i, pl := range playlists {
		items, err := p.engine.source.PlaylistTracks(ctx, pl.Key)
		if isNotFound(err) {
			p.logger.Warn("playlist no longer exists", "id", pl.Key)
			p.skip([]string{pl.Key})
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch tracks of %s: %w", pl.Key, err)
		}

		for _, item := range items {
			if item.Track == nil || item.IsLocal || item.Track.IsLocal || item.Track.ID == "" {
				name := ""
				if item.Track != nil {
					name = item.Track.Name
				}
				p.logger.Info("skipping track without id", "playlist", pl.String(), "track", name)
				p.result.Ignored++
				continue
			}

			attrs := map[string]any{}
			if item.AddedAt != "" {
				attrs["added_at"] = item.AddedAt
			}
			if item.AddedBy != nil && item.AddedBy.ID != "" {
				attrs["added_by"] = item.AddedBy.ID
			}

			l := link{
				rel:    models.Includes,
				anchor: pl.Ref(),
				other:  models.Ref{Kind: models.Song, Key: item.Track.ID},
				attrs:  attrs,
			}
			if err := p.link(ctx, l); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(playlists)))
	}

	return p.resolve(ctx, p.fetchSongs)
}

// albums links songs to the album they appear on.
func (p *pass) albums(ctx context.Context) error {
	songs, err := p.engine.anchors(ctx, models.Song, models.OnAlbum)
	if err != nil {
		return fmt.Errorf("failed to scan songs: %w", err)
	}
	p.result.Anchors = len(songs)
	sendProgress(p.progress, scanUpdate(p.job, len(songs)))

	tracks, ids, err := lookupAligned(ctx, p, keys(songs), p.engine.source.Tracks, trackID)
	if err != nil {
		return err
	}

	for i, t := range tracks {
		if t.Album.ID == "" {
			continue
		}
		l := link{
			rel:    models.OnAlbum,
			anchor: models.Ref{Kind: models.Song, Key: ids[i]},
			other:  models.Ref{Kind: models.Album, Key: t.Album.ID},
		}
		if err := p.link(ctx, l); err != nil {
			return err
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(tracks)))
	}

	return p.resolve(ctx, p.fetchAlbums)
}

// artists links albums to the artists credited with releasing them.
func (p *pass) artists(ctx context.Context) error {
	albums, err := p.engine.anchors(ctx, models.Album, models.Released)
	if err != nil {
		return fmt.Errorf("failed to scan albums: %w", err)
	}
	p.result.Anchors = len(albums)
	sendProgress(p.progress, scanUpdate(p.job, len(albums)))

	remote, ids, err := lookupAligned(ctx, p, keys(albums), p.engine.source.Albums, albumID)
	if err != nil {
		return err
	}

	for i, a := range remote {
		for _, artist := range a.ArtistIDs() {
			l := link{
				rel:     models.Released,
				anchor:  models.Ref{Kind: models.Album, Key: ids[i]},
				other:   models.Ref{Kind: models.Artist, Key: artist},
				reverse: true,
			}
			if err := p.link(ctx, l); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(remote)))
	}

	return p.resolve(ctx, p.fetchArtists)
}

// performs links songs to the artists credited on them. It creates no nodes of its own besides deferred artists.
func (p *pass) performs(ctx context.Context) error {
	songs, err := p.engine.anchors(ctx, models.Song, models.Performs)
	if err != nil {
		return fmt.Errorf("failed to scan songs: %w", err)
	}
	p.result.Anchors = len(songs)
	sendProgress(p.progress, scanUpdate(p.job, len(songs)))

	tracks, ids, err := lookupAligned(ctx, p, keys(songs), p.engine.source.Tracks, trackID)
	if err != nil {
		return err
	}

	for i, t := range tracks {
		for _, artist := range t.ArtistIDs() {
			l := link{
				rel:     models.Performs,
				anchor:  models.Ref{Kind: models.Song, Key: ids[i]},
				other:   models.Ref{Kind: models.Artist, Key: artist},
				reverse: true,
			}
			if err := p.link(ctx, l); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(tracks)))
	}

	return p.resolve(ctx, p.fetchArtists)
}

// genres creates Genre nodes inline from artist detail, so nothing is ever deferred.
func (p *pass) genres(ctx context.Context) error {
	artists, err := p.engine.anchors(ctx, models.Artist, models.GenreAssoc)
	if err != nil {
		return fmt.Errorf("failed to scan artists: %w", err)
	}
	p.result.Anchors = len(artists)
	sendProgress(p.progress, scanUpdate(p.job, len(artists)))

	remote, ids, err := lookupAligned(ctx, p, keys(artists), p.engine.source.Artists, artistID)
	if err != nil {
		return err
	}

	for i, a := range remote {
		for _, name := range shared.Unique(a.Genres) {
			genre, err := models.NewGenreNode(name)
			if err != nil {
				p.logger.Warn("dropping empty genre", "artist", ids[i])
				continue
			}
			if err := p.mergeNode(ctx, genre); err != nil {
				return err
			}
			l := link{
				rel:    models.GenreAssoc,
				anchor: models.Ref{Kind: models.Artist, Key: ids[i]},
				other:  genre.Ref(),
			}
			if err := p.attach(ctx, l, true); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(remote)))
	}

	p.state = done
	return nil
}
