package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// AdminRepository stores back-office users and their roles.
type AdminRepository struct {
	db *database.Provider
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.Provider) *AdminRepository {
	return &AdminRepository{db: db}
}

// RolePermissions returns the capability tokens configured for roleID.
// The column holds a JSON array of strings.
func (r *AdminRepository) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT permissions FROM admin_roles WHERE id = ?", roleID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup role %d: %w", roleID, err)
	}

	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, fmt.Errorf("decode permissions of role %d: %w", roleID, err)
	}
	return tokens, nil
}

// UpsertRole creates the named role or replaces its permissions, returning its id.
func (r *AdminRepository) UpsertRole(ctx context.Context, name string, permissions []string) (int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	if permissions == nil {
		permissions = []string{}
	}
	encoded, err := json.Marshal(permissions)
	if err != nil {
		return 0, fmt.Errorf("encode permissions: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO admin_roles (name, permissions) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET permissions = excluded.permissions
		RETURNING id`, name, string(encoded)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert role %s: %w", name, err)
	}
	return id, nil
}

// FindUserByUsername returns an active user by login name.
func (r *AdminRepository) FindUserByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return r.findUser(ctx, "username = ?", username)
}

// FindUserByID returns an active user by id.
func (r *AdminRepository) FindUserByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r *AdminRepository) findUser(ctx context.Context, cond string, arg any) (*models.AdminUser, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var u models.AdminUser
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role_id, is_active
		FROM admin_users
		WHERE `+cond+` AND is_active = ?`, arg, true).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RoleID, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user with an already hashed password.
func (r *AdminRepository) CreateUser(ctx context.Context, username, passwordHash string, roleID int64) (int64, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admin_users (username, password_hash, role_id)
		VALUES (?, ?, ?)
		RETURNING id`, username, passwordHash, roleID).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicateName
		}
		return 0, fmt.Errorf("insert admin user: %w", err)
	}
	return id, nil
}

// TouchLastLogin stamps the user's last successful login.
func (r *AdminRepository) TouchLastLogin(ctx context.Context, id int64) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx,
		"UPDATE admin_users SET last_login = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
		return fmt.Errorf("touch last login of %d: %w", id, err)
	}
	return nil
}
