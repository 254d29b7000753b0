// Package workgroup manages named member groups. Workgroup names
// share the global namespace with usernames and proposal sids.
package workgroup

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/models"
	"github.com/jart/sparkles/internal/utils"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,64}$`)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create makes a workgroup and enrolls the creator as its first
// member, in one transaction.
func (s *Service) Create(ctx context.Context, userID, name, content string) (*models.Workgroup, error) {
	if !nameRe.MatchString(name) {
		return nil, common.ErrInvalidIdentifier
	}
	taken, err := common.NameTaken(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, common.ErrIdentifierTaken
	}

	wg := &models.Workgroup{
		ID:       utils.GenerateUUID(),
		Username: name,
		Content:  content,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO workgroups (id, username, content) VALUES (?, ?, ?)`,
		wg.ID, wg.Username, wg.Content)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error creating workgroup: %v", err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO workgroup_members (id, workgroup_id, user_id) VALUES (?, ?, ?)`,
		utils.GenerateUUID(), wg.ID, userID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error adding workgroup creator: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing workgroup: %v", err)
	}
	return wg, nil
}

// Join enrolls a user; joining twice is a no-op.
func (s *Service) Join(ctx context.Context, userID, name string) error {
	wg, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT IGNORE INTO workgroup_members (id, workgroup_id, user_id)
        VALUES (?, ?, ?)`,
		utils.GenerateUUID(), wg.ID, userID)
	if err != nil {
		return fmt.Errorf("error joining workgroup: %v", err)
	}
	return nil
}

type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// Members returns the workgroup's member list with join timestamps.
func (s *Service) Members(ctx context.Context, name string) (*models.Workgroup, []Member, error) {
	wg, err := s.get(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT u.id, u.username, wm.created_at
        FROM workgroup_members wm
        JOIN users u ON u.id = wm.user_id
        WHERE wm.workgroup_id = ?
        ORDER BY wm.created_at`, wg.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading members: %v", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.JoinedAt); err != nil {
			return nil, nil, fmt.Errorf("error scanning member: %v", err)
		}
		members = append(members, m)
	}
	return wg, members, rows.Err()
}

func (s *Service) get(ctx context.Context, name string) (*models.Workgroup, error) {
	var wg models.Workgroup
	err := s.db.QueryRowContext(ctx, `
        SELECT id, username, COALESCE(content, ''), created_at
        FROM workgroups WHERE LOWER(username) = LOWER(?)`, name).Scan(
		&wg.ID, &wg.Username, &wg.Content, &wg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error loading workgroup: %v", err)
	}
	return &wg, nil
}
