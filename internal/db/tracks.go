package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kurlez/doctalk/internal/models"
)

func (db *DB) CreateTrack(ctx context.Context, track *models.Track) error {
	query := `
		INSERT INTO tracks (
			id, document_id, part_index, file_name, local_path,
			storage_path, duration_seconds, byte_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		track.ID, track.DocumentID, track.PartIndex, track.FileName, track.LocalPath,
		track.StoragePath, track.DurationSeconds, track.ByteSize,
	).Scan(&track.CreatedAt)
}

func (db *DB) GetDocumentTracks(ctx context.Context, documentID uuid.UUID) ([]models.Track, error) {
	query := `
		SELECT
			id, document_id, part_index, file_name, local_path,
			storage_path, duration_seconds, byte_size, created_at
		FROM tracks
		WHERE document_id = $1
		ORDER BY part_index
	`

	rows, err := db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		err := rows.Scan(
			&track.ID, &track.DocumentID, &track.PartIndex, &track.FileName, &track.LocalPath,
			&track.StoragePath, &track.DurationSeconds, &track.ByteSize, &track.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

func (db *DB) GetTrack(ctx context.Context, documentID uuid.UUID, partIndex int) (*models.Track, error) {
	query := `
		SELECT
			id, document_id, part_index, file_name, local_path,
			storage_path, duration_seconds, byte_size, created_at
		FROM tracks
		WHERE document_id = $1 AND part_index = $2
	`

	track := &models.Track{}
	err := db.QueryRowContext(ctx, query, documentID, partIndex).Scan(
		&track.ID, &track.DocumentID, &track.PartIndex, &track.FileName, &track.LocalPath,
		&track.StoragePath, &track.DurationSeconds, &track.ByteSize, &track.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return track, nil
}

func (db *DB) SetTrackStoragePath(ctx context.Context, id uuid.UUID, storagePath string) error {
	query := `UPDATE tracks SET storage_path = $1 WHERE id = $2`
	_, err := db.ExecContext(ctx, query, storagePath, id)
	return err
}
