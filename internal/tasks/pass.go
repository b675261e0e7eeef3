package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// link is a relationship seen on the remote between a stored anchor and a counterpart that may not be stored yet.
type link struct {
	rel     models.RelType
	anchor  models.Ref
	other   models.Ref
	reverse bool // counterpart is the source, e.g. Artist-[RELEASED]->Album anchored on the album
	attrs   map[string]any
}

func (l link) relationship() (*models.Relationship, error) {
	if l.reverse {
		return models.NewRelationship(l.rel, l.other, l.anchor, l.attrs)
	}
	return models.NewRelationship(l.rel, l.anchor, l.other, l.attrs)
}

type passState int

const (
	scanning passState = iota
	resolving
	done
)

// pass runs one job. Links to missing counterparts are queued by counterpart key while scanning,
// then the queue is drained exactly once while resolving.
type pass struct {
	engine   *SyncEngine
	job      Job
	logger   *log.Logger
	progress chan<- ProgressUpdate
	result   *MergeResult

	state passState
	queue map[string][]link
	order []string
}

func (p *pass) skip(ids []string) {
	p.result.Skipped = append(p.result.Skipped, ids...)
}

func (p *pass) mergeNode(ctx context.Context, node *models.Node) error {
	created, err := p.engine.store.MergeNode(ctx, node)
	if err != nil {
		return err
	}
	p.result.Nodes++
	if created {
		p.result.Created++
	}
	return nil
}

// link merges l when its counterpart is stored and queues it otherwise.
// While resolving, a missing counterpart is a consistency failure.
func (p *pass) link(ctx context.Context, l link) error {
	return p.attach(ctx, l, p.state == resolving)
}

func (p *pass) attach(ctx context.Context, l link, mustExist bool) error {
	rel, err := l.relationship()
	if err != nil {
		return err
	}

	var missing, created bool
	err = p.engine.store.Update(ctx, func(tx repositories.Tx) error {
		if _, err := tx.Match(ctx, l.other.Kind, l.other.Key); err != nil {
			if errors.Is(err, repositories.ErrNodeNotFound) {
				missing = true
				return nil
			}
			return err
		}
		c, err := tx.MergeRelationship(ctx, rel)
		created = c
		return err
	})
	if errors.Is(err, repositories.ErrNodeNotFound) {
		return fmt.Errorf("%w: anchor of %s vanished from the store: %v", shared.ErrConsistency, rel, err)
	}
	if err != nil {
		return err
	}

	if missing {
		if mustExist {
			return fmt.Errorf("%w: %s still missing after it was merged", shared.ErrConsistency, l.other)
		}
		p.enqueue(l)
		return nil
	}

	p.result.Relationships++
	if created {
		p.result.Created++
	}
	return nil
}

func (p *pass) enqueue(l link) {
	if _, ok := p.queue[l.other.Key]; !ok {
		p.order = append(p.order, l.other.Key)
	}
	p.queue[l.other.Key] = append(p.queue[l.other.Key], l)
}

// resolve fetches every queued counterpart, merges it and attaches its links.
//
// A counterpart the remote does not return is logged and its links are counted as unresolved.
func (p *pass) resolve(ctx context.Context, fetch func(ctx context.Context, ids []string) ([]*models.Node, error)) error {
	defer func() { p.state = done }()
	if len(p.order) == 0 {
		return nil
	}

	p.state = resolving
	p.result.Deferred = len(p.order)
	p.logger.Info("resolving deferred counterparts", "count", len(p.order))
	sendProgress(p.progress, resolveUpdate(p.job, len(p.order)))

	nodes, err := fetch(ctx, p.order)
	if err != nil {
		return fmt.Errorf("failed to fetch deferred counterparts: %w", err)
	}

	found := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if err := p.mergeNode(ctx, n); err != nil {
			return err
		}
		found[n.Key] = true
	}

	for i, key := range p.order {
		links := p.queue[key]
		if !found[key] {
			p.logger.Warn("counterpart not returned by remote", "ref", links[0].other, "links", len(links))
			p.result.Unresolved += len(links)
			continue
		}
		for _, l := range links {
			if err := p.link(ctx, l); err != nil {
				return err
			}
		}
		sendProgress(p.progress, linkUpdate(p.job, i+1, len(p.order)))
	}

	p.queue = map[string][]link{}
	p.order = nil
	return nil
}

// lookupAligned fetches the remote detail of anchors and checks it lines up with what was asked for.
func lookupAligned[T any](ctx context.Context, p *pass, ids []string,
	lookup func(context.Context, []string) (*services.Batch[T], error), id func(T) string,
) ([]T, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	sendProgress(p.progress, fetchUpdate(p.job, len(ids)))

	batch, err := lookup(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	p.skip(batch.Skipped)
	return aligned(ids, batch, id)
}

// nodesFrom builds counterpart nodes from a batch, dropping entities the remote returned without a key.
func nodesFrom[T any](p *pass, batch *services.Batch[T], build func(T) (*models.Node, error)) []*models.Node {
	p.skip(batch.Skipped)

	nodes := make([]*models.Node, 0, len(batch.Items))
	for _, item := range batch.Items {
		n, err := build(item)
		if err != nil {
			p.logger.Warn("dropping entity", "error", err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func (p *pass) fetchPlaylists(ctx context.Context, ids []string) ([]*models.Node, error) {
	batch, err := p.engine.source.Playlists(ctx, ids)
	if err != nil {
		return nil, err
	}
	return nodesFrom(p, batch, func(pl services.SpotifyPlaylist) (*models.Node, error) {
		return models.NewPlaylistNode(pl.ID, pl.Name)
	}), nil
}

func (p *pass) fetchSongs(ctx context.Context, ids []string) ([]*models.Node, error) {
	batch, err := p.engine.source.Tracks(ctx, ids)
	if err != nil {
		return nil, err
	}
	return nodesFrom(p, batch, func(t services.SpotifyTrack) (*models.Node, error) {
		return models.NewSongNode(t.ID, t.Name, t.Popularity, t.DurationMS)
	}), nil
}

func (p *pass) fetchAlbums(ctx context.Context, ids []string) ([]*models.Node, error) {
	batch, err := p.engine.source.Albums(ctx, ids)
	if err != nil {
		return nil, err
	}
	return nodesFrom(p, batch, func(a services.SpotifyAlbum) (*models.Node, error) {
		return models.NewAlbumNode(a.ID, a.Name, a.Popularity, a.ReleaseDate)
	}), nil
}

func (p *pass) fetchArtists(ctx context.Context, ids []string) ([]*models.Node, error) {
	batch, err := p.engine.source.Artists(ctx, ids)
	if err != nil {
		return nil, err
	}
	return nodesFrom(p, batch, func(a services.SpotifyArtist) (*models.Node, error) {
		return models.NewArtistNode(a.ID, a.Name, a.Popularity)
	}), nil
}
