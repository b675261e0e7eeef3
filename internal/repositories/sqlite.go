package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/shared"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore keeps the graph in three tables: nodes, node_labels and relationships.
//
// Attributes are stored as JSON objects and merged in Go, one attribute at a time.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := shared.OpenGraphDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an already migrated database.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Update runs fn inside a database transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Match(ctx context.Context, kind models.Kind, key string) (*models.Node, error) {
	return (&sqliteTx{q: s.db}).Match(ctx, kind, key)
}

func (s *SQLiteStore) MergeNode(ctx context.Context, node *models.Node) (created bool, err error) {
	err = s.Update(ctx, func(tx Tx) error {
		created, err = tx.MergeNode(ctx, node)
		return err
	})
	return created, err
}

func (s *SQLiteStore) MergeRelationship(ctx context.Context, rel *models.Relationship) (created bool, err error) {
	err = s.Update(ctx, func(tx Tx) error {
		created, err = tx.MergeRelationship(ctx, rel)
		return err
	})
	return created, err
}

func (s *SQLiteStore) FindAll(ctx context.Context, kind models.Kind) ([]*models.Node, error) {
	query := `SELECT key, attrs FROM nodes WHERE kind = ? ORDER BY key`
	return s.findNodes(ctx, kind, query, kind)
}

func (s *SQLiteStore) FindLabeled(ctx context.Context, kind models.Kind, label string) ([]*models.Node, error) {
	query := `
		SELECT n.key, n.attrs
		FROM nodes n
		JOIN node_labels l ON l.kind = n.kind AND l.key = n.key
		WHERE n.kind = ? AND l.label = ?
		ORDER BY n.key
	`
	return s.findNodes(ctx, kind, query, kind, label)
}

func (s *SQLiteStore) FindMissing(ctx context.Context, kind models.Kind, rel models.RelType) ([]*models.Node, error) {
	query := `
		SELECT n.key, n.attrs
		FROM nodes n
		WHERE n.kind = ?
		AND NOT EXISTS (
			SELECT 1 FROM relationships r
			WHERE r.type = ?
			AND ((r.source_kind = n.kind AND r.source_key = n.key)
				OR (r.target_kind = n.kind AND r.target_key = n.key))
		)
		ORDER BY n.key
	`
	return s.findNodes(ctx, kind, query, kind, rel)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM nodes GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan node count: %w", err)
		}
		stats.Nodes[models.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	relRows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM relationships GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var rel string
		var n int
		if err := relRows.Scan(&rel, &n); err != nil {
			return nil, fmt.Errorf("failed to scan relationship count: %w", err)
		}
		stats.Relationships[models.RelType(rel)] = n
	}
	return stats, relRows.Err()
}

// findNodes runs a query selecting (key, attrs) for one kind and attaches labels.
func (s *SQLiteStore) findNodes(ctx context.Context, kind models.Kind, query string, args ...any) ([]*models.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s nodes: %w", kind, err)
	}
	defer rows.Close()

	var nodes []*models.Node
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		attrs, err := decodeAttrs(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &models.Node{Kind: kind, Key: key, Attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nodes, nil
	}

	labels, err := s.labelsByKey(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		n.Labels = labels[n.Key]
	}
	return nodes, nil
}

func (s *SQLiteStore) labelsByKey(ctx context.Context, kind models.Kind) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, label FROM node_labels WHERE kind = ? ORDER BY key, label`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := map[string][]string{}
	for rows.Next() {
		var key, label string
		if err := rows.Scan(&key, &label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels[key] = append(labels[key], label)
	}
	return labels, rows.Err()
}

// sqliteTx implements [Tx] over either the database or an open transaction.
type sqliteTx struct {
	q querier
}

func (t *sqliteTx) Match(ctx context.Context, kind models.Kind, key string) (*models.Node, error) {
	var raw string
	err := t.q.QueryRowContext(ctx, `SELECT attrs FROM nodes WHERE kind = ? AND key = ?`, kind, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nodeNotFound(kind, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match node: %w", err)
	}

	attrs, err := decodeAttrs(raw)
	if err != nil {
		return nil, err
	}
	node := &models.Node{Kind: kind, Key: key, Attrs: attrs}

	rows, err := t.q.QueryContext(ctx, `SELECT label FROM node_labels WHERE kind = ? AND key = ? ORDER BY label`, kind, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		node.Labels = append(node.Labels, label)
	}
	return node, rows.Err()
}

func (t *sqliteTx) MergeNode(ctx context.Context, node *models.Node) (bool, error) {
	if node == nil || node.Key == "" {
		return false, models.ErrNoneAsKey
	}

	var raw string
	err := t.q.QueryRowContext(ctx, `SELECT attrs FROM nodes WHERE kind = ? AND key = ?`, node.Kind, node.Key).Scan(&raw)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("failed to read node: %w", err)
	}

	attrs := map[string]any{}
	if !created {
		if attrs, err = decodeAttrs(raw); err != nil {
			return false, err
		}
	}
	maps.Copy(attrs, node.Attrs)

	encoded, err := json.Marshal(attrs)
	if err != nil {
		return false, fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now()
	if created {
		_, err = t.q.ExecContext(ctx,
			`INSERT INTO nodes (kind, key, attrs, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			node.Kind, node.Key, string(encoded), now, now)
	} else {
		_, err = t.q.ExecContext(ctx,
			`UPDATE nodes SET attrs = ?, updated_at = ? WHERE kind = ? AND key = ?`,
			string(encoded), now, node.Kind, node.Key)
	}
	if err != nil {
		return false, fmt.Errorf("failed to merge node %s: %w", node.Ref(), err)
	}

	for _, label := range node.Labels {
		if _, err := t.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO node_labels (kind, key, label) VALUES (?, ?, ?)`,
			node.Kind, node.Key, label); err != nil {
			return false, fmt.Errorf("failed to add label %s: %w", label, err)
		}
	}

	return created, nil
}

func (t *sqliteTx) MergeRelationship(ctx context.Context, rel *models.Relationship) (bool, error) {
	for _, ref := range []models.Ref{rel.Source, rel.Target} {
		var one int
		err := t.q.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE kind = ? AND key = ?`, ref.Kind, ref.Key).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nodeNotFound(ref.Kind, ref.Key)
		}
		if err != nil {
			return false, fmt.Errorf("failed to match endpoint: %w", err)
		}
	}

	var raw string
	err := t.q.QueryRowContext(ctx, `
		SELECT attrs FROM relationships
		WHERE type = ? AND source_kind = ? AND source_key = ? AND target_kind = ? AND target_key = ?
	`, rel.Type, rel.Source.Kind, rel.Source.Key, rel.Target.Kind, rel.Target.Key).Scan(&raw)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("failed to read relationship: %w", err)
	}

	attrs := map[string]any{}
	if !created {
		if attrs, err = decodeAttrs(raw); err != nil {
			return false, err
		}
	}
	maps.Copy(attrs, rel.Attrs)

	encoded, err := json.Marshal(attrs)
	if err != nil {
		return false, fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now()
	if created {
		_, err = t.q.ExecContext(ctx, `
			INSERT INTO relationships (type, source_kind, source_key, target_kind, target_key, attrs, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rel.Type, rel.Source.Kind, rel.Source.Key, rel.Target.Kind, rel.Target.Key, string(encoded), now, now)
	} else {
		_, err = t.q.ExecContext(ctx, `
			UPDATE relationships SET attrs = ?, updated_at = ?
			WHERE type = ? AND source_kind = ? AND source_key = ? AND target_kind = ? AND target_key = ?
		`, string(encoded), now, rel.Type, rel.Source.Kind, rel.Source.Key, rel.Target.Kind, rel.Target.Key)
	}
	if err != nil {
		return false, fmt.Errorf("failed to merge relationship %s: %w", rel, err)
	}
	return created, nil
}

func decodeAttrs(raw string) (map[string]any, error) {
	attrs := map[string]any{}
	if raw == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}
