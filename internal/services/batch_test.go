package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/desertthunder/tunegraph/internal/shared"
)

type item struct{ ID string }

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id%03d", i)
	}
	return out
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	echo := func(calls *[][]string) LookupFunc[item] {
		return func(ctx context.Context, chunk []string) ([]*item, error) {
			*calls = append(*calls, chunk)
			out := make([]*item, len(chunk))
			for i, id := range chunk {
				out[i] = &item{ID: id}
			}
			return out, nil
		}
	}

	t.Run("splits into ceil(n/size) chunks", func(t *testing.T) {
		var calls [][]string
		batch, err := Lookup(ctx, ids(101), 50, echo(&calls), logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(calls) != 3 {
			t.Errorf("expected 3 calls, got %d", len(calls))
		}
		if len(batch.Items) != 101 || len(batch.Skipped) != 0 {
			t.Errorf("expected 101 items and no skips, got %d and %d", len(batch.Items), len(batch.Skipped))
		}
		if batch.Items[100].ID != "id100" {
			t.Errorf("expected results in request order, got %s last", batch.Items[100].ID)
		}
	})

	t.Run("failed chunk is skipped", func(t *testing.T) {
		n := 0
		fn := func(ctx context.Context, chunk []string) ([]*item, error) {
			n++
			if n == 2 {
				return nil, errors.New("transient")
			}
			out := make([]*item, len(chunk))
			for i, id := range chunk {
				out[i] = &item{ID: id}
			}
			return out, nil
		}

		batch, err := Lookup(ctx, ids(45), 20, fn, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(batch.Items) != 25 {
			t.Errorf("expected 25 items, got %d", len(batch.Items))
		}
		if len(batch.Skipped) != 20 || batch.Skipped[0] != "id020" {
			t.Errorf("expected second chunk to be skipped, got %v", batch.Skipped)
		}
	})

	t.Run("rejected or undecodable chunks are skipped", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
		}{
			{"bad request", fmt.Errorf("%w: status 400", shared.ErrAPIRequest)},
			{"not found", fmt.Errorf("%w: /tracks", shared.ErrNotFound)},
			{"decode failure", fmt.Errorf("failed to decode response: %w", io.ErrUnexpectedEOF)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				calls := 0
				fn := func(ctx context.Context, chunk []string) ([]*item, error) {
					calls++
					return nil, tt.err
				}

				batch, err := Lookup(ctx, ids(120), 50, fn, logger)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if calls != 3 || len(batch.Items) != 0 || len(batch.Skipped) != 120 {
					t.Errorf("expected 3 calls and 120 skipped, got %d calls, %d items, %d skipped", calls, len(batch.Items), len(batch.Skipped))
				}
			})
		}
	})

	t.Run("credential and outage errors abort", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
		}{
			{"not authenticated", shared.ErrNotAuthenticated},
			{"token expired", shared.ErrTokenExpired},
			{"refresh failed", fmt.Errorf("%w: invalid_grant", shared.ErrRefreshFailed)},
			{"no refresh token", shared.ErrNoRefreshToken},
			{"breaker open", fmt.Errorf("%w: circuit breaker is open", shared.ErrServiceUnavailable)},
			{"rate limited", shared.ErrRateLimited},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				calls := 0
				fn := func(ctx context.Context, chunk []string) ([]*item, error) {
					calls++
					return nil, tt.err
				}

				batch, err := Lookup(ctx, ids(120), 50, fn, logger)
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				if batch != nil {
					t.Errorf("expected no batch, got %+v", batch)
				}
				if calls != 1 {
					t.Errorf("expected the first chunk to stop the lookup, got %d calls", calls)
				}
			})
		}
	})

	t.Run("unknown ids are reported as skipped", func(t *testing.T) {
		fn := func(ctx context.Context, chunk []string) ([]*item, error) {
			return []*item{{ID: chunk[0]}, nil, {ID: chunk[2]}}, nil
		}

		batch, err := Lookup(ctx, []string{"a", "b", "c"}, 50, fn, logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(batch.Items) != 2 || !slices.Equal(batch.Skipped, []string{"b"}) {
			t.Errorf("expected 2 items and b skipped, got %v / %v", batch.Items, batch.Skipped)
		}
	})

	t.Run("empty input makes no calls", func(t *testing.T) {
		var calls [][]string
		batch, err := Lookup(ctx, nil, 50, echo(&calls), logger)
		if err != nil || len(calls) != 0 || len(batch.Items) != 0 {
			t.Errorf("expected no calls and no items, got %d calls (%v)", len(calls), err)
		}
	})

	t.Run("cancellation aborts", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		fn := func(ctx context.Context, chunk []string) ([]*item, error) {
			cancel()
			return nil, context.Canceled
		}
		if _, err := Lookup(cctx, ids(10), 5, fn, logger); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
