package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// ActivityRepository appends to the admin activity log.
type ActivityRepository struct {
	db *database.Provider
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.Provider) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert writes one activity entry. Details are stored as a JSON object.
func (r *ActivityRepository) Insert(ctx context.Context, e models.ActivityEntry) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}

	var userID, entityID any
	if e.UserID != 0 {
		userID = e.UserID
	}
	if e.EntityID != 0 {
		entityID = e.EntityID
	}
	var ip any
	if e.IPAddress != "" {
		ip = e.IPAddress
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_activity_log (event_id, user_id, action, entity_type, entity_id, details, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, userID, e.Action, e.EntityType, entityID, string(encoded), ip); err != nil {
		return fmt.Errorf("insert activity %s: %w", e.EventID, err)
	}
	return nil
}
