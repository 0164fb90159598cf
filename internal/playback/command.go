// Package playback holds the shared-playback domain: the playback command union,
// its boundary decoder, and the rules for the room's shared playback state.
package playback

import (
	"fmt"
	"strings"
	"time"

	"tandem/internal/models"
)

// Kind names one of the six playback intents.
type Kind string

const (
	KindPlay     Kind = "play"
	KindPause    Kind = "pause"
	KindNext     Kind = "next"
	KindPrevious Kind = "previous"
	KindSeek     Kind = "seek"
	KindVolume   Kind = "volume"
)

// Kinds lists every command kind.
var Kinds = []Kind{KindPlay, KindPause, KindNext, KindPrevious, KindSeek, KindVolume}

// ParseKind accepts a canonical command name.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// legacyActions maps free-text action values written by older clients.
var legacyActions = map[string]Kind{
	"play":          KindPlay,
	"resume":        KindPlay,
	"start":         KindPlay,
	"pause":         KindPause,
	"stop":          KindPause,
	"next":          KindNext,
	"skip":          KindNext,
	"skip_next":     KindNext,
	"previous":      KindPrevious,
	"prev":          KindPrevious,
	"skip_previous": KindPrevious,
	"seek":          KindSeek,
	"volume":        KindVolume,
	"set_volume":    KindVolume,
}

// Command is a decoded playback intent. The concrete type carries only the fields its kind needs.
type Command interface {
	Kind() Kind
}

// Play resumes the current track, or starts TrackURI when set, optionally at PositionMs.
type Play struct {
	TrackURI   *string
	PositionMs *int64
}

// Pause stops playback.
type Pause struct{}

// Next skips forward.
type Next struct{}

// Previous skips back.
type Previous struct{}

// Seek moves the playhead.
type Seek struct {
	PositionMs int64
}

// Volume sets the output volume in percent.
type Volume struct {
	Percent int
}

func (Play) Kind() Kind     { return KindPlay }
func (Pause) Kind() Kind    { return KindPause }
func (Next) Kind() Kind     { return KindNext }
func (Previous) Kind() Kind { return KindPrevious }
func (Seek) Kind() Kind     { return KindSeek }
func (Volume) Kind() Kind   { return KindVolume }

// Payload is the wire form of a command as posted by devices.
type Payload struct {
	Command           string     `json:"command,omitempty"`
	Action            string     `json:"action,omitempty"`
	TrackURI          *string    `json:"track_uri,omitempty"`
	PositionMs        *int64     `json:"position_ms,omitempty"`
	Volume            *int       `json:"volume,omitempty"`
	RequestedAt       *time.Time `json:"requested_at,omitempty"`
	RequestedByUserID *string    `json:"requested_by_user_id,omitempty"`
}

// Envelope is a decoded command with its log metadata.
type Envelope struct {
	ID                uint
	RoomID            string
	Command           Command
	Action            string
	RequestedAt       time.Time
	RequestedByUserID *string
	CreatedAt         time.Time
}

// Decode validates a payload for roomID and turns it into an Envelope.
// This is the only place the legacy action field is interpreted.
func Decode(roomID string, p Payload, now time.Time) (Envelope, error) {
	if strings.TrimSpace(roomID) == "" {
		return Envelope{}, models.NewValidationError("room_id is required")
	}

	kind, err := resolveKind(p.Command, p.Action)
	if err != nil {
		return Envelope{}, err
	}

	cmd, err := build(kind, p)
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		RoomID:            roomID,
		Command:           cmd,
		Action:            strings.TrimSpace(p.Action),
		RequestedAt:       now,
		RequestedByUserID: trimmed(p.RequestedByUserID),
	}
	if p.RequestedAt != nil && !p.RequestedAt.IsZero() {
		env.RequestedAt = *p.RequestedAt
	}
	return env, nil
}

func resolveKind(command, action string) (Kind, error) {
	command = strings.TrimSpace(command)
	action = strings.ToLower(strings.TrimSpace(action))

	switch {
	case command != "":
		kind, ok := ParseKind(command)
		if !ok {
			return "", models.NewValidationError(fmt.Sprintf("unknown command %q", command))
		}
		return kind, nil
	case action != "":
		kind, ok := legacyActions[action]
		if !ok {
			return "", models.NewValidationError(fmt.Sprintf("unknown action %q", action))
		}
		return kind, nil
	default:
		return "", models.NewValidationError("command or action is required")
	}
}

func build(kind Kind, p Payload) (Command, error) {
	switch kind {
	case KindPlay:
		if p.PositionMs != nil && *p.PositionMs < 0 {
			return nil, models.NewValidationError("position_ms must be >= 0")
		}
		uri := trimmed(p.TrackURI)
		if p.TrackURI != nil && uri == nil {
			return nil, models.NewValidationError("track_uri must not be empty")
		}
		return Play{TrackURI: uri, PositionMs: p.PositionMs}, nil
	case KindPause:
		return Pause{}, nil
	case KindNext:
		return Next{}, nil
	case KindPrevious:
		return Previous{}, nil
	case KindSeek:
		if p.PositionMs == nil {
			return nil, models.NewValidationError("position_ms is required for seek")
		}
		if *p.PositionMs < 0 {
			return nil, models.NewValidationError("position_ms must be >= 0")
		}
		return Seek{PositionMs: *p.PositionMs}, nil
	case KindVolume:
		if p.Volume == nil {
			return nil, models.NewValidationError("volume is required for volume")
		}
		if *p.Volume < 0 || *p.Volume > 100 {
			return nil, models.NewValidationError("volume must be between 0 and 100")
		}
		return Volume{Percent: *p.Volume}, nil
	}
	return nil, models.NewValidationError(fmt.Sprintf("unknown command %q", kind))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Record converts the envelope to its log row.
func (e Envelope) Record() models.PlaybackCommand {
	rec := models.PlaybackCommand{
		ID:                e.ID,
		RoomID:            e.RoomID,
		Command:           string(e.Command.Kind()),
		Action:            e.Action,
		RequestedAt:       e.RequestedAt,
		RequestedByUserID: e.RequestedByUserID,
		CreatedAt:         e.CreatedAt,
	}
	switch c := e.Command.(type) {
	case Play:
		rec.TrackURI = c.TrackURI
		rec.PositionMs = c.PositionMs
	case Seek:
		pos := c.PositionMs
		rec.PositionMs = &pos
	case Volume:
		vol := c.Percent
		rec.Volume = &vol
	}
	return rec
}

// FromRecord decodes a stored row. Rows written by legacy clients carry only Action.
func FromRecord(rec models.PlaybackCommand) (Envelope, error) {
	requestedAt := rec.RequestedAt
	env, err := Decode(rec.RoomID, Payload{
		Command:           rec.Command,
		Action:            rec.Action,
		TrackURI:          rec.TrackURI,
		PositionMs:        rec.PositionMs,
		Volume:            rec.Volume,
		RequestedAt:       &requestedAt,
		RequestedByUserID: rec.RequestedByUserID,
	}, rec.CreatedAt)
	if err != nil {
		return Envelope{}, err
	}
	env.ID = rec.ID
	env.CreatedAt = rec.CreatedAt
	return env, nil
}

// AuthoredBy reports whether userID wrote the command. Anonymous commands match nobody.
func (e Envelope) AuthoredBy(userID string) bool {
	return e.RequestedByUserID != nil && userID != "" && *e.RequestedByUserID == userID
}

// CompensatedPosition adds the time elapsed since requestedAt to positionMs.
// Clock skew that puts requestedAt in the future counts as zero elapsed.
func CompensatedPosition(positionMs int64, requestedAt, now time.Time) int64 {
	elapsed := now.Sub(requestedAt)
	if elapsed < 0 || requestedAt.IsZero() {
		elapsed = 0
	}
	return positionMs + elapsed.Milliseconds()
}

// ToPayload renders a command back to its wire form.
func ToPayload(cmd Command, requestedBy string, requestedAt time.Time) Payload {
	p := Payload{
		Command:     string(cmd.Kind()),
		RequestedAt: &requestedAt,
	}
	if requestedBy != "" {
		p.RequestedByUserID = &requestedBy
	}
	switch c := cmd.(type) {
	case Play:
		p.TrackURI = c.TrackURI
		p.PositionMs = c.PositionMs
	case Seek:
		pos := c.PositionMs
		p.PositionMs = &pos
	case Volume:
		vol := c.Percent
		p.Volume = &vol
	}
	return p
}
