package usecase

import (
	"context"
	"fmt"

	"github.com/okutsev/TuneRoom/internal/domain/models"
	"github.com/okutsev/TuneRoom/internal/infra/adapters/postgres/repository"
)

// TrackUsecase exposes the song catalog. The catalog is owned by the
// ingestion side of the system; rooms only index into it.
type TrackUsecase interface {
	ListTracks(ctx context.Context) ([]models.Track, error)
	AddTrack(ctx context.Context, title, artist, audioURL, coverImage string) (*models.Track, error)
}

type trackUsecase struct {
	trackRepo repository.TrackRepository
}

func NewTrackUsecase(trackRepo repository.TrackRepository) TrackUsecase {
	return &trackUsecase{trackRepo: trackRepo}
}

func (uc *trackUsecase) ListTracks(ctx context.Context) ([]models.Track, error) {
	return uc.trackRepo.ListTracks(ctx)
}

func (uc *trackUsecase) AddTrack(ctx context.Context, title, artist, audioURL, coverImage string) (*models.Track, error) {
	count, err := uc.trackRepo.CountTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("next track position: %w", err)
	}

	track := models.NewTrack(count, title, artist, audioURL, coverImage)

	if err := uc.trackRepo.CreateTrack(ctx, track); err != nil {
		return nil, err
	}

	return track, nil
}
