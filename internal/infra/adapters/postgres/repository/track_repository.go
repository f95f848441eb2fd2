package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/okutsev/TuneRoom/internal/domain/models"
)

// TrackRepository reads the song catalog. The sync core treats the catalog as
// external read-only input; only ingestion writes it.
type TrackRepository interface {
	ListTracks(ctx context.Context) ([]models.Track, error)
	CountTracks(ctx context.Context) (int, error)
	CreateTrack(ctx context.Context, track *models.Track) error
}

type trackRepo struct {
	db *sqlx.DB
}

func NewTrackRepo(db *sqlx.DB) TrackRepository {
	return &trackRepo{db: db}
}

func (r *trackRepo) ListTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track

	query := "SELECT id, position, title, artist, audio_url, cover_image, created_at FROM tracks ORDER BY position"

	if err := r.db.SelectContext(ctx, &tracks, query); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}

	return tracks, nil
}

func (r *trackRepo) CountTracks(ctx context.Context) (int, error) {
	var count int

	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tracks"); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}

	return count, nil
}

func (r *trackRepo) CreateTrack(ctx context.Context, track *models.Track) error {
	query := "INSERT INTO tracks (id, position, title, artist, audio_url, cover_image) VALUES ($1, $2, $3, $4, $5, $6)"

	res, err := r.db.ExecContext(ctx, query,
		track.ID, track.Position, track.Title, track.Artist, track.AudioURL, track.CoverImage,
	)
	if err != nil {
		return fmt.Errorf("create track: %w", err)
	}

	if aff, err := res.RowsAffected(); aff == 0 || err != nil {
		return fmt.Errorf("create track no rows affected: %w", err)
	}

	return nil
}
