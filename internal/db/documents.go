package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kurlez/doctalk/internal/models"
)

var ErrDocumentNotFound = fmt.Errorf("document not found")

func (db *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (
			id, title, source_format, source_text, voice, provider, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		doc.ID, doc.Title, doc.SourceFormat, doc.SourceText, doc.Voice, doc.Provider, doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `
		SELECT
			id, title, source_format, source_text, voice, provider, status,
			report, error_message, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	doc := &models.Document{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.SourceFormat, &doc.SourceText, &doc.Voice,
		&doc.Provider, &doc.Status, &doc.Report, &doc.ErrorMessage,
		&doc.CreatedAt, &doc.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListDocuments returns a page of document summaries, newest first,
// optionally filtered by status. The total count ignores paging.
func (db *DB) ListDocuments(ctx context.Context, status models.DocumentStatus, limit, offset int) ([]models.DocumentSummary, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE d.status = $1"
		args = append(args, status)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM documents d %s`, where)
	var total int
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT
			d.id, d.title, d.source_format, d.voice, d.status,
			COUNT(t.id), d.error_message, d.created_at, d.updated_at
		FROM documents d
		LEFT JOIN tracks t ON t.document_id = d.id
		%s
		GROUP BY d.id
		ORDER BY d.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentSummary
	for rows.Next() {
		var doc models.DocumentSummary
		err := rows.Scan(
			&doc.ID, &doc.Title, &doc.SourceFormat, &doc.Voice, &doc.Status,
			&doc.TrackCount, &doc.ErrorMessage, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, total, nil
}

func (db *DB) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error {
	query := `UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateDocumentError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE documents
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.DocumentStatusFailed, errorMessage, time.Now(), id)
	return err
}

// SetDocumentReport stores the chunk-level synthesis summary alongside the
// final status.
func (db *DB) SetDocumentReport(ctx context.Context, id uuid.UUID, status models.DocumentStatus, report models.JSONB) error {
	query := `
		UPDATE documents
		SET status = $1, report = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, status, report, time.Now(), id)
	return err
}
