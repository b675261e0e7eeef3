package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// ErrNodeNotFound is returned by Match, and by MergeRelationship when an endpoint does not exist.
var ErrNodeNotFound = fmt.Errorf("node not found")

// Tx is the set of operations available inside [Store.Update].
type Tx interface {
	// Match looks up a node by kind and key.
	Match(ctx context.Context, kind models.Kind, key string) (*models.Node, error)
	// MergeNode creates the node or merges its attributes and labels into the stored one.
	// Attributes absent from node keep their stored values.
	MergeNode(ctx context.Context, node *models.Node) (created bool, err error)
	// MergeRelationship creates the relationship or merges its attributes.
	// Both endpoints must already exist.
	MergeRelationship(ctx context.Context, rel *models.Relationship) (created bool, err error)
}

// Store is a property graph of [models.Node] values joined by [models.Relationship] values.
//
// Match, MergeNode and MergeRelationship called on the Store itself each run in their own transaction.
type Store interface {
	Tx

	// FindAll returns every node of kind ordered by key.
	FindAll(ctx context.Context, kind models.Kind) ([]*models.Node, error)
	// FindLabeled returns nodes of kind carrying the extra label.
	FindLabeled(ctx context.Context, kind models.Kind, label string) ([]*models.Node, error)
	// FindMissing returns nodes of kind that take part in no relationship of type rel, in either direction.
	FindMissing(ctx context.Context, kind models.Kind, rel models.RelType) ([]*models.Node, error)
	// Update runs fn in a write transaction, committing when fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	// Stats counts nodes per kind and relationships per type.
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats summarizes the graph contents.
type Stats struct {
	Nodes         map[models.Kind]int
	Relationships map[models.RelType]int
}

func newStats() *Stats {
	s := &Stats{Nodes: map[models.Kind]int{}, Relationships: map[models.RelType]int{}}
	for _, k := range models.Kinds {
		s.Nodes[k] = 0
	}
	for _, p := range models.Schema {
		s.Relationships[p.Type] = 0
	}
	return s
}

// Open connects to the backend named by cfg.Backend. An empty backend selects SQLite.
func Open(ctx context.Context, cfg shared.GraphConfig, logger *log.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: graph.path is required for the sqlite backend", shared.ErrMissingConfig)
		}
		return NewSQLiteStore(ctx, cfg.Path)
	case "neo4j":
		if cfg.URI == "" {
			return nil, fmt.Errorf("%w: graph.uri is required for the neo4j backend", shared.ErrMissingConfig)
		}
		return NewNeo4jStore(ctx, Neo4jOptions{
			URI:      cfg.URI,
			Username: cfg.Username,
			Password: cfg.Password,
			Database: cfg.Database,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown graph backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

func nodeNotFound(kind models.Kind, key string) error {
	return fmt.Errorf("%w: %s", ErrNodeNotFound, models.Ref{Kind: kind, Key: key})
}
