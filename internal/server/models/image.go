package models

import "time"

// Image is metadata for a generated or uploaded image. Uploaded bytes live
// in object storage under ObjectKey; for generated images URL carries the
// upstream location of the rendered picture.
type Image struct {
	ID        int64
	UserID    int64
	ObjectKey string
	Prompt    string
	URL       string
	CreatedAt time.Time
}
