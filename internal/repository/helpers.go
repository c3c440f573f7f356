package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
)

// assignments collects "column = ?" pairs for partial updates.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) add(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

func (a *assignments) empty() bool { return len(a.cols) == 0 }

// update runs UPDATE table SET ... WHERE id = ? and bumps updated_at.
func (a *assignments) update(ctx context.Context, q database.Querier, table string, id int64) error {
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		table, strings.Join(a.cols, ", "))
	_, err := q.ExecContext(ctx, query, append(a.args, id)...)
	return err
}

// exists reports whether table has a row with id.
func exists(ctx context.Context, q database.Querier, table string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", table, id, err)
	}
	return true, nil
}

// count runs a COUNT(*) query.
func count(ctx context.Context, q database.Querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// idArgs converts ids to query arguments and reports whether any id repeats.
func idArgs(ids []int64) (args []any, duplicate bool) {
	seen := make(map[int64]struct{}, len(ids))
	args = make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			duplicate = true
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}
	return args, duplicate
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
// Wildcards typed by the user match literally.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
