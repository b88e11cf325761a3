package models

// RosterEntry is one online user as carried in presence broadcasts.
type RosterEntry struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
}
