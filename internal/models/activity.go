package models

// ActivityEntry is one audit record of an administrative action
type ActivityEntry struct {
	EventID    string
	UserID     int64
	Action     string
	EntityType string
	EntityID   int64
	Details    map[string]any
	IPAddress  string
}
