package pgvectorDB

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type pgvectorDB struct {
	pool   *pgxpool.Pool
	table  string
	logger *logger_i.Logger
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func New(pool *pgxpool.Pool, table string) vectorDB.Store {
	return &pgvectorDB{
		pool:   pool,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger_i.NewLogger("pgvector").With("table", table),
	}
}

func (db *pgvectorDB) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	db.logger.WithTrace(ctx).Debug("Recreating table", "dimension", dimension)

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, db.table),
		createTableSQL(db.table, dimension),
	}
	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector reset: %w", err)
		}
	}
	return nil
}

func createTableSQL(table string, dimension int) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		id text PRIMARY KEY,
		file text NOT NULL,
		page integer NOT NULL,
		content text NOT NULL,
		embedding vector(%d) NOT NULL
	)`, table, dimension)
}

func (db *pgvectorDB) Upsert(ctx context.Context, ids []string, vectors [][]float32, passages []commonModels.Passage) error {
	if len(ids) != len(vectors) || len(ids) != len(passages) {
		return fmt.Errorf("mismatch: got %d ids, %d vectors and %d passages", len(ids), len(vectors), len(passages))
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, file, page, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			file = EXCLUDED.file,
			page = EXCLUDED.page,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, db.table)

	batch := &pgx.Batch{}
	for i, id := range ids {
		p := passages[i]
		batch.Queue(query, id, p.File, p.Page, p.Text, pgvector.NewVector(vectors[i]))
	}

	results := db.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("pgvector upsert failed: %w", err)
		}
	}
	return nil
}

func (db *pgvectorDB) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, id
		LIMIT $2`, db.table)

	rows, err := db.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		db.logger.WithTrace(ctx).Error("Error querying pgvector", "error", err)
		return nil, err
	}
	defer rows.Close()

	var matches []vectorDB.Match
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		matches = append(matches, vectorDB.Match{ID: id, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	vectorDB.SortMatches(matches)
	return matches, nil
}

func (db *pgvectorDB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, db.table)).Scan(&n)
	return n, err
}

func (db *pgvectorDB) Drop(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, db.table))
	return err
}
