package models

// Snapshot is a document as returned by the Remote Store together with the
// server-assigned modification time.
type Snapshot struct {
	Data      CoupleDocument `json:"data"`
	UpdatedAt Timestamp      `json:"updated_at"`
}
