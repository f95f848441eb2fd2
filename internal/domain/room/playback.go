package room

// Role of a room member. Exactly one member per room is the host.
type Role string

const (
	RoleHost     Role = "host"
	RoleListener Role = "listener"
)

// Action is a host-issued playback mutation kind.
type Action string

const (
	ActionPlayPause   Action = "playPause"
	ActionChangeTrack Action = "changeTrack"
	ActionSeek        Action = "seek"
	ActionToggleLoop  Action = "toggleLoop"
)

// PlaybackState is the authoritative record of what a room should be playing.
type PlaybackState struct {
	TrackIndex  int     `json:"trackIndex"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	IsLooping   bool    `json:"isLooping"`
}

// StateDelta is a partial playback update. Nil fields keep their previous
// value when merged.
type StateDelta struct {
	TrackIndex  *int     `json:"trackIndex,omitempty"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	IsPlaying   *bool    `json:"isPlaying,omitempty"`
	IsLooping   *bool    `json:"isLooping,omitempty"`
}

// Merge overwrites state field-by-field from the delta.
func (s *PlaybackState) Merge(d StateDelta) {
	if d.TrackIndex != nil {
		s.TrackIndex = *d.TrackIndex
	}
	if d.CurrentTime != nil {
		s.CurrentTime = *d.CurrentTime
	}
	if d.IsPlaying != nil {
		s.IsPlaying = *d.IsPlaying
	}
	if d.IsLooping != nil {
		s.IsLooping = *d.IsLooping
	}
}
