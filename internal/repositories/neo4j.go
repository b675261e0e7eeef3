package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// identifier matches labels and relationship types that may be spliced into Cypher text.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Neo4jOptions configures [NewNeo4jStore].
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string
	Logger   *log.Logger
}

// Neo4jStore keeps the graph in a Neo4j database. Each kind is a label with a uniqueness constraint on its key field.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *log.Logger
}

// NewNeo4jStore connects, verifies connectivity and ensures one uniqueness constraint per kind.
func NewNeo4jStore(ctx context.Context, opts Neo4jOptions) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create neo4j driver: %v", shared.ErrInvalidConfig, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j at %s: %v", shared.ErrServiceUnavailable, opts.URI, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Neo4jStore{driver: driver, database: opts.Database, logger: logger}
	if err := s.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) ensureConstraints(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, kind := range models.Kinds {
		result, err := session.Run(ctx, constraintQuery(kind), nil)
		if err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", kind, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", kind, err)
		}
	}
	s.logger.Debug("neo4j constraints ensured", "kinds", len(models.Kinds))
	return nil
}

// Update runs fn in an explicit transaction so fn is never replayed.
func (s *Neo4jStore) Update(ctx context.Context, fn func(Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Close(ctx)

	if err := fn(&neoTx{run: tx}); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			s.logger.Warn("rollback failed", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Neo4jStore) Match(ctx context.Context, kind models.Kind, key string) (*models.Node, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	node, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return (&neoTx{run: tx}).Match(ctx, kind, key)
	})
	if err != nil {
		return nil, err
	}
	return node.(*models.Node), nil
}

func (s *Neo4jStore) MergeNode(ctx context.Context, node *models.Node) (created bool, err error) {
	err = s.Update(ctx, func(tx Tx) error {
		created, err = tx.MergeNode(ctx, node)
		return err
	})
	return created, err
}

func (s *Neo4jStore) MergeRelationship(ctx context.Context, rel *models.Relationship) (created bool, err error) {
	err = s.Update(ctx, func(tx Tx) error {
		created, err = tx.MergeRelationship(ctx, rel)
		return err
	})
	return created, err
}

func (s *Neo4jStore) FindAll(ctx context.Context, kind models.Kind) ([]*models.Node, error) {
	return s.findNodes(ctx, kind, findAllQuery(kind), nil)
}

func (s *Neo4jStore) FindLabeled(ctx context.Context, kind models.Kind, label string) ([]*models.Node, error) {
	query, err := findLabeledQuery(kind, label)
	if err != nil {
		return nil, err
	}
	return s.findNodes(ctx, kind, query, nil)
}

func (s *Neo4jStore) FindMissing(ctx context.Context, kind models.Kind, rel models.RelType) ([]*models.Node, error) {
	query, err := findMissingQuery(kind, rel)
	if err != nil {
		return nil, err
	}
	return s.findNodes(ctx, kind, query, nil)
}

func (s *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	stats := newStats()
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, kind := range models.Kinds {
			n, err := count(ctx, tx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS c", kind))
			if err != nil {
				return nil, fmt.Errorf("failed to count %s nodes: %w", kind, err)
			}
			stats.Nodes[kind] = n
		}
		for rel := range stats.Relationships {
			n, err := count(ctx, tx, fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS c", rel))
			if err != nil {
				return nil, fmt.Errorf("failed to count %s relationships: %w", rel, err)
			}
			stats.Relationships[rel] = n
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Neo4jStore) findNodes(ctx context.Context, kind models.Kind, query string, params map[string]any) ([]*models.Node, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s nodes: %w", kind, err)
	}

	var nodes []*models.Node
	for result.Next(ctx) {
		node, err := nodeFromRecord(kind, result.Record())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, result.Err()
}

type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

// neoTx implements [Tx] over a managed or an explicit transaction.
type neoTx struct {
	run cypherRunner
}

func (t *neoTx) Match(ctx context.Context, kind models.Kind, key string) (*models.Node, error) {
	result, err := t.run.Run(ctx, matchQuery(kind), map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("failed to match node: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to match node: %w", err)
		}
		return nil, nodeNotFound(kind, key)
	}
	return nodeFromRecord(kind, result.Record())
}

func (t *neoTx) MergeNode(ctx context.Context, node *models.Node) (bool, error) {
	if node == nil || node.Key == "" {
		return false, models.ErrNoneAsKey
	}
	query, err := mergeNodeQuery(node)
	if err != nil {
		return false, err
	}

	result, err := t.run.Run(ctx, query, map[string]any{"key": node.Key, "attrs": node.Properties()})
	if err != nil {
		return false, fmt.Errorf("failed to merge node %s: %w", node.Ref(), err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to merge node %s: %w", node.Ref(), err)
	}
	return summary.Counters().NodesCreated() > 0, nil
}

func (t *neoTx) MergeRelationship(ctx context.Context, rel *models.Relationship) (bool, error) {
	query, err := mergeRelationshipQuery(rel)
	if err != nil {
		return false, err
	}

	params := map[string]any{"source": rel.Source.Key, "target": rel.Target.Key, "attrs": rel.Properties()}
	result, err := t.run.Run(ctx, query, params)
	if err != nil {
		return false, fmt.Errorf("failed to merge relationship %s: %w", rel, err)
	}

	linked := int64(0)
	if result.Next(ctx) {
		if v, ok := result.Record().Get("linked"); ok {
			linked, _ = v.(int64)
		}
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to merge relationship %s: %w", rel, err)
	}
	if linked == 0 {
		if _, err := t.Match(ctx, rel.Source.Kind, rel.Source.Key); err != nil {
			return false, err
		}
		return false, nodeNotFound(rel.Target.Kind, rel.Target.Key)
	}
	return summary.Counters().RelationshipsCreated() > 0, nil
}

func count(ctx context.Context, run cypherRunner, query string) (int, error) {
	result, err := run.Run(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	v, _ := record.Get("c")
	n, _ := v.(int64)
	return int(n), nil
}

func nodeFromRecord(kind models.Kind, record *neo4j.Record) (*models.Node, error) {
	v, ok := record.Get("n")
	if !ok {
		return nil, errors.New("record has no node column")
	}
	raw, ok := v.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected value %T for node column", v)
	}

	node := &models.Node{Kind: kind, Attrs: map[string]any{}}
	for k, val := range raw.Props {
		if k == kind.KeyField() {
			node.Key, _ = val.(string)
			continue
		}
		node.Attrs[k] = val
	}
	for _, label := range raw.Labels {
		if label != string(kind) {
			node.Labels = append(node.Labels, label)
		}
	}
	slices.Sort(node.Labels)
	return node, nil
}

func checkIdentifier(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q is not a valid graph identifier", shared.ErrInvalidInput, name)
	}
	return nil
}

func constraintQuery(kind models.Kind) string {
	return fmt.Sprintf("CREATE CONSTRAINT %s_%s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		strings.ToLower(string(kind)), kind.KeyField(), kind, kind.KeyField())
}

func matchQuery(kind models.Kind) string {
	return fmt.Sprintf("MATCH (n:%s {%s: $key}) RETURN n", kind, kind.KeyField())
}

func findAllQuery(kind models.Kind) string {
	return fmt.Sprintf("MATCH (n:%s) RETURN n ORDER BY n.%s", kind, kind.KeyField())
}

func findLabeledQuery(kind models.Kind, label string) (string, error) {
	if err := checkIdentifier(label); err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:%s:%s) RETURN n ORDER BY n.%s", kind, label, kind.KeyField()), nil
}

func findMissingQuery(kind models.Kind, rel models.RelType) (string, error) {
	if err := checkIdentifier(string(rel)); err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:%s) WHERE NOT (n)-[:%s]-() RETURN n ORDER BY n.%s", kind, rel, kind.KeyField()), nil
}

// mergeNodeQuery merges on the key field only; SET += leaves attributes missing from $attrs untouched.
func mergeNodeQuery(node *models.Node) (string, error) {
	if !node.Kind.Valid() {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownKind, node.Kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (n:%s {%s: $key}) SET n += $attrs", node.Kind, node.Kind.KeyField())
	for _, label := range node.Labels {
		if err := checkIdentifier(label); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " SET n:%s", label)
	}
	return b.String(), nil
}

// mergeRelationshipQuery returns a count of zero when either endpoint is missing.
func mergeRelationshipQuery(rel *models.Relationship) (string, error) {
	if !models.Allowed(rel.Source.Kind, rel.Type, rel.Target.Kind) {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidRelationship, rel)
	}
	return fmt.Sprintf(
		"MATCH (a:%s {%s: $source}) MATCH (b:%s {%s: $target}) MERGE (a)-[r:%s]->(b) SET r += $attrs RETURN count(r) AS linked",
		rel.Source.Kind, rel.Source.Kind.KeyField(),
		rel.Target.Kind, rel.Target.Kind.KeyField(),
		rel.Type,
	), nil
}
