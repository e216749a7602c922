package models

import "time"

// Project pairs user-facing metadata with exactly one current audio object.
// AudioURL always references the most recently committed object; previous
// objects are not retained.
type Project struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	AudioURL    string
	AudioFormat string
	FileSize    int64
	// TranscriptionText is nil until the project has been transcribed.
	TranscriptionText *string
	// DurationInSeconds is reserved; nothing fills it in yet.
	DurationInSeconds *float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
