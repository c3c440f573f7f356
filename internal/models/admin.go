package models

// AdminUser is a back-office operator
type AdminUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	RoleID       int64  `json:"role_id"`
	IsActive     bool   `json:"is_active"`
}

// AdminRole names a set of permission tokens
type AdminRole struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}
