package common

import (
	"context"
	"database/sql"
	"fmt"
)

// NameTaken reports whether name is already claimed anywhere in the
// global short-name namespace: usernames, workgroup names, and
// proposal sids all share it so that any name resolves to exactly one
// entity. Username and workgroup comparisons are case-insensitive.
func NameTaken(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var taken bool
	err := db.QueryRowContext(ctx, `
        SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER(?))
            OR EXISTS(SELECT 1 FROM workgroups WHERE LOWER(username) = LOWER(?))
            OR EXISTS(SELECT 1 FROM proposals WHERE sid = ?)`,
		name, name, name).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("error checking name %q: %v", name, err)
	}
	return taken, nil
}
