package models

import "time"

// Profile is the relay's read-only projection of a user held by the
// external document store: display name plus preferred language.
type Profile struct {
	Identity  string    `json:"identity"`
	Name      string    `json:"name"`
	Language  string    `json:"language"` // ISO 639-1 code, e.g. "en"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
