package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okutsev/TuneRoom/internal/application/constant"
	"github.com/okutsev/TuneRoom/internal/infra/ports/http/dto"
	"github.com/okutsev/TuneRoom/internal/usecase"
)

type TrackHandler struct {
	trackUsecase usecase.TrackUsecase
}

func NewTrackHandler(trackUsecase usecase.TrackUsecase) *TrackHandler {
	return &TrackHandler{trackUsecase: trackUsecase}
}

func (h *TrackHandler) ListTracksHandler(c echo.Context) error {
	tracks, err := h.trackUsecase.ListTracks(c.Request().Context())
	if err != nil {
		slog.Error("list tracks", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list tracks"})
	}

	resp := dto.ListTracksResponse{
		Tracks: make([]dto.TrackResponse, 0, len(tracks)),
	}

	for _, track := range tracks {
		resp.Tracks = append(resp.Tracks, dto.NewTrackResponseFromModel(track))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *TrackHandler) CreateTrackHandler(c echo.Context) error {
	var req dto.CreateTrackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Title == "" || req.AudioURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title and audio_url are required"})
	}

	track, err := h.trackUsecase.AddTrack(c.Request().Context(), req.Title, req.Artist, req.AudioURL, req.CoverImage)
	if err != nil {
		slog.Error("create track", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create track"})
	}

	return c.JSON(http.StatusCreated, dto.NewTrackResponseFromModel(*track))
}
