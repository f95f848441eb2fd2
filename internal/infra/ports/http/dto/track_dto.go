package dto

import "github.com/okutsev/TuneRoom/internal/domain/models"

type TrackResponse struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	AudioURL   string `json:"audio_url"`
	CoverImage string `json:"cover_image"`
}

type ListTracksResponse struct {
	Tracks []TrackResponse `json:"tracks"`
}

type CreateTrackRequest struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	AudioURL   string `json:"audio_url"`
	CoverImage string `json:"cover_image"`
}

func NewTrackResponseFromModel(track models.Track) TrackResponse {
	return TrackResponse{
		Index:      track.Position,
		Title:      track.Title,
		Artist:     track.Artist,
		AudioURL:   track.AudioURL,
		CoverImage: track.CoverImage,
	}
}
