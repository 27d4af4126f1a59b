package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/vigil-grid/vigil/internal/model"
)

const documentColumns = `id, corpus, title, content, source, metadata`

// UpsertDocument inserts a document or replaces the one with the same corpus
// and title. A nil embedding leaves any stored embedding and its hash
// untouched. When an embedding is written, doc.ContentHash is recorded as the
// embedding's source hash and an outbox entry is queued in the same
// transaction so an external vector index picks it up.
func (db *DB) UpsertDocument(ctx context.Context, doc model.Document, embedding *pgvector.Vector) (uuid.UUID, error) {
	if doc.ID == uuid.Nil {
		doc.ID = model.DocumentID(doc.Corpus, doc.Title)
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	var embeddingHash *string
	if embedding != nil && doc.ContentHash != "" {
		embeddingHash = &doc.ContentHash
	}

	var id uuid.UUID
	err := WithRetry(ctx, 3, 10*time.Millisecond, func() error {
		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := tx.QueryRow(ctx, `
			INSERT INTO document (id, corpus, title, content, source, metadata, embedding, embedding_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (corpus, title) DO UPDATE SET
			    content        = EXCLUDED.content,
			    source         = EXCLUDED.source,
			    metadata       = EXCLUDED.metadata,
			    embedding      = COALESCE(EXCLUDED.embedding, document.embedding),
			    embedding_hash = CASE WHEN EXCLUDED.embedding IS NULL
			                          THEN document.embedding_hash
			                          ELSE EXCLUDED.embedding_hash END
			RETURNING id`,
			doc.ID, doc.Corpus, doc.Title, doc.Content, doc.Source, metadata, embedding, embeddingHash).Scan(&id); err != nil {
			return err
		}
		if embedding != nil {
			if err := enqueueOutbox(ctx, tx, []uuid.UUID{id}, OutboxUpsert); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: upsert document %q: %w", doc.Title, err)
	}
	return id, nil
}

// EmbeddedHashes returns, for each embedded document in corpus, the content
// hash its embedding was computed from. Documents embedded without a hash
// are omitted.
func (db *DB) EmbeddedHashes(ctx context.Context, corpus string) (map[uuid.UUID]string, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, embedding_hash FROM document
		WHERE corpus = $1 AND embedding IS NOT NULL AND embedding_hash IS NOT NULL`, corpus)
	if err != nil {
		return nil, fmt.Errorf("storage: embedded hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]string)
	for rows.Next() {
		var id uuid.UUID
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("storage: embedded hashes: scan: %w", err)
		}
		out[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: embedded hashes: %w", err)
	}
	return out, nil
}

// PruneDocuments deletes documents in corpus whose IDs are not in keep and
// queues their removal from the external index. It returns the number removed.
func (db *DB) PruneDocuments(ctx context.Context, corpus string, keep []uuid.UUID) (int, error) {
	if keep == nil {
		keep = []uuid.UUID{}
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: prune documents: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		DELETE FROM document
		WHERE corpus = $1 AND NOT (id = ANY($2))
		RETURNING id`, corpus, keep)
	if err != nil {
		return 0, fmt.Errorf("storage: prune documents: %w", err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("storage: prune documents: %w", err)
	}
	if err := enqueueOutbox(ctx, tx, removed, OutboxDelete); err != nil {
		return 0, fmt.Errorf("storage: prune documents: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("storage: prune documents: commit: %w", err)
	}
	return len(removed), nil
}

// Search outbox operations.
const (
	OutboxUpsert = "upsert"
	OutboxDelete = "delete"
)

func enqueueOutbox(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, op string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO search_outbox (document_id, operation)
		SELECT unnest($1::uuid[]), $2`, ids, op)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", op, err)
	}
	return nil
}

func scanDocument(row pgx.Row, withScore bool) (model.Document, error) {
	var d model.Document
	dest := []any{&d.ID, &d.Corpus, &d.Title, &d.Content, &d.Source, &d.Metadata}
	if withScore {
		dest = append(dest, &d.Score)
	}
	err := row.Scan(dest...)
	return d, err
}

func scanScoredDocument(row pgx.Row) (model.Document, error) { return scanDocument(row, true) }

func scanPlainDocument(row pgx.Row) (model.Document, error) { return scanDocument(row, false) }

// SearchDocumentsText matches query against title and content with ILIKE.
// Title matches rank above content matches.
func (db *DB) SearchDocumentsText(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	pattern := "%" + escapeLike(query) + "%"
	return collect(ctx, db, "search documents text", scanScoredDocument, `
		SELECT `+documentColumns+`,
		       CASE WHEN title ILIKE $2 THEN 1.0 ELSE 0.5 END AS score
		FROM document
		WHERE ($1 = '' OR corpus = $1)
		  AND (title ILIKE $2 OR content ILIKE $2)
		ORDER BY score DESC, title
		LIMIT $3`, corpus, pattern, limit)
}

// SearchDocumentsVector ranks documents by cosine similarity to vec.
// Documents without an embedding are skipped.
func (db *DB) SearchDocumentsVector(ctx context.Context, corpus string, vec pgvector.Vector, limit int) ([]model.Document, error) {
	return collect(ctx, db, "search documents vector", scanScoredDocument, `
		SELECT `+documentColumns+`, 1 - (embedding <=> $2) AS score
		FROM document
		WHERE ($1 = '' OR corpus = $1) AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`, corpus, vec, limit)
}

// DocumentsByID loads documents for ids returned by an external index.
func (db *DB) DocumentsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Document, error) {
	docs, err := collect(ctx, db, "documents by id", scanPlainDocument, `
		SELECT `+documentColumns+` FROM document WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Document, len(docs))
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
