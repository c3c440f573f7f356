package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/activity"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/permission"
)

var (
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
)

// Activity actions written to the audit log.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionLogin  = "LOGIN"
)

// Caller is the authenticated admin behind a request, with the capability
// set resolved once for that request.
type Caller struct {
	UserID    int64
	Username  string
	RoleID    int64
	Caps      permission.Set
	IPAddress string
}

// require rejects the call before any store access unless every token is held.
func (c Caller) require(needed ...string) error {
	if !c.Caps.Require(needed...) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, strings.Join(needed, ", "))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// recorder writes audit entries for one service.
type recorder struct {
	sink       activity.Sink
	entityType string
}

func (r recorder) record(ctx context.Context, c Caller, action string, entityID int64, details map[string]any) {
	if r.sink == nil {
		return
	}
	r.sink.Record(ctx, models.ActivityEntry{
		UserID:     c.UserID,
		Action:     action,
		EntityType: r.entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  c.IPAddress,
	})
}

// Decimal places kept by the store for money and for quantities.
const (
	moneyPlaces    int32 = 2
	quantityPlaces int32 = 3
)

// places rejects v when it carries more decimal places than the column keeps,
// so no value is silently rounded on write.
func places(field string, v decimal.Decimal, limit int32) error {
	if !v.Equal(v.Truncate(limit)) {
		return invalid("%s allows at most %d decimal places", field, limit)
	}
	return nil
}

func language(lang, fallback string) string {
	if lang = strings.TrimSpace(lang); lang != "" {
		return lang
	}
	return fallback
}
