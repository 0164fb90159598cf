package playback

import (
	"tandem/internal/models"
)

// IsController reports whether userID is the room's current playback controller.
func IsController(state models.PlaybackState, userID string) bool {
	return state.ControlledByUserID != nil && userID != "" && *state.ControlledByUserID == userID
}

// ValidateState checks a proposed playback state against the room it will be written to.
func ValidateState(room *models.Room, state models.PlaybackState) error {
	if state.ProgressMs < 0 {
		return models.NewValidationError("progress_ms must be >= 0")
	}
	if state.ControlledByUserID != nil && !room.HasMember(*state.ControlledByUserID) {
		return models.NewValidationError("controlled_by_user_id must be a member of the room")
	}
	if state.CurrentTrackURI != nil && *state.CurrentTrackURI == "" {
		return models.NewValidationError("current_track_uri must not be empty")
	}
	return nil
}

// WithoutController clears the controller when it points at userID.
func WithoutController(state models.PlaybackState, userID string) (models.PlaybackState, bool) {
	if IsController(state, userID) {
		state.ControlledByUserID = nil
		state.IsPlaying = false
		return state, true
	}
	return state, false
}

// Apply projects the effect of a command onto a state, as a controller records it after acting.
// Next and Previous leave the track unknown until the provider reports the new one.
func Apply(state models.PlaybackState, cmd Command) models.PlaybackState {
	switch c := cmd.(type) {
	case Play:
		state.IsPlaying = true
		if c.TrackURI != nil {
			uri := *c.TrackURI
			state.CurrentTrackURI = &uri
			state.ProgressMs = 0
		}
		if c.PositionMs != nil {
			state.ProgressMs = *c.PositionMs
		}
	case Pause:
		state.IsPlaying = false
	case Seek:
		state.ProgressMs = c.PositionMs
	case Next, Previous:
		state.ProgressMs = 0
	}
	return state
}
