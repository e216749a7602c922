package models

import "time"

// UploadedFile is an audit record of a blob placed in the object store.
// Projects do not reference it directly.
type UploadedFile struct {
	ID               int64
	UserID           int64
	OriginalFileName string
	Size             int64
	Extension        string
	URL              string
	CreatedAt        time.Time
	UploadedAt       time.Time
}
