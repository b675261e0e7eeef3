package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// Upper bounds on ids per multi-get request.
const (
	MaxTrackLookup    = 50
	MaxArtistLookup   = 50
	MaxAlbumLookup    = 20
	MaxPlaylistLookup = 1
)

// Batch is the outcome of a best-effort multi-get.
//
// Items hold found entities in request order. Skipped lists the ids of failed chunks
// plus ids the provider answered with null, so callers can line Items up with what they asked for.
type Batch[T any] struct {
	Items   []T
	Skipped []string
}

// LookupFunc fetches one chunk. The result is aligned with ids; a nil entry means the id is unknown.
type LookupFunc[T any] func(ctx context.Context, ids []string) ([]*T, error)

// Lookup partitions ids into chunks of at most size, calls fn once per chunk and concatenates results in chunk order.
//
// A chunk rejected by the provider or that fails to decode is logged and skipped.
// Cancellation, lost credentials and an unavailable provider abort the lookup.
func Lookup[T any](ctx context.Context, ids []string, size int, fn LookupFunc[T], logger *log.Logger) (*Batch[T], error) {
	batch := &Batch[T]{Items: make([]T, 0, len(ids))}
	chunks := shared.Chunk(ids, size)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := fn(ctx, chunk)
		if err != nil {
			if fatalLookupError(err) {
				return nil, fmt.Errorf("lookup chunk %d/%d: %w", i+1, len(chunks), err)
			}
			if logger != nil {
				logger.Warn("skipping failed lookup chunk", "chunk", i+1, "chunks", len(chunks), "ids", len(chunk), "error", err)
			}
			batch.Skipped = append(batch.Skipped, chunk...)
			continue
		}

		for j, id := range chunk {
			if j >= len(found) || found[j] == nil {
				if logger != nil {
					logger.Warn("lookup returned no entity", "id", id)
				}
				batch.Skipped = append(batch.Skipped, id)
				continue
			}
			batch.Items = append(batch.Items, *found[j])
		}
	}

	return batch, nil
}

// fatalLookupError reports whether err would fail every remaining chunk as well.
func fatalLookupError(err error) bool {
	for _, target := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		shared.ErrNotAuthenticated,
		shared.ErrTokenExpired,
		shared.ErrRefreshFailed,
		shared.ErrNoRefreshToken,
		shared.ErrServiceUnavailable,
		shared.ErrRateLimited,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
