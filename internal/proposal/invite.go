package proposal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/utils"
)

// InviteTarget is the resolved form of an invite name: exactly one of
// a user or a workgroup, since both live in the same name namespace.
type InviteTarget struct {
	UserID      string
	WorkgroupID string
}

// ResolveTarget looks the name up as a user first, then as a
// workgroup.
func (s *Service) ResolveTarget(ctx context.Context, name string) (*InviteTarget, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE LOWER(username) = LOWER(?)", name).Scan(&id)
	if err == nil {
		return &InviteTarget{UserID: id}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error resolving user %q: %v", name, err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM workgroups WHERE LOWER(username) = LOWER(?)", name).Scan(&id)
	if err == nil {
		return &InviteTarget{WorkgroupID: id}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error resolving workgroup %q: %v", name, err)
	}
	return nil, common.ErrUnknownTarget
}

type invitee struct {
	userID   string
	username string
}

// Invite adds the named user, or every member of the named workgroup,
// to the proposal. The whole fan-out runs in a single transaction, so
// a failure partway through a workgroup expansion commits nothing.
// Invites for existing members are absorbed silently; each member
// actually added gets one log entry. Returns the number of members
// added.
func (s *Service) Invite(ctx context.Context, sid, inviterID, name string) (int, error) {
	p, err := s.requireMember(ctx, sid, inviterID)
	if err != nil {
		return 0, err
	}

	target, err := s.ResolveTarget(ctx, name)
	if err != nil {
		return 0, err
	}

	var invitees []invitee
	if target.UserID != "" {
		invitees = []invitee{{userID: target.UserID, username: name}}
	} else {
		rows, err := s.db.QueryContext(ctx, `
            SELECT wm.user_id, u.username
            FROM workgroup_members wm
            JOIN users u ON u.id = wm.user_id
            WHERE wm.workgroup_id = ?`,
			target.WorkgroupID)
		if err != nil {
			return 0, fmt.Errorf("error loading workgroup members: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var inv invitee
			if err := rows.Scan(&inv.userID, &inv.username); err != nil {
				return 0, fmt.Errorf("error scanning workgroup member: %v", err)
			}
			invitees = append(invitees, inv)
		}
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("error reading workgroup members: %v", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %v", err)
	}

	added := 0
	for _, inv := range invitees {
		// INSERT IGNORE leans on the (proposal, user) unique key to
		// make re-invites a no-op.
		result, err := tx.ExecContext(ctx, `
            INSERT IGNORE INTO proposal_members (id, proposal_id, user_id, inviter_id)
            VALUES (?, ?, ?, ?)`,
			utils.GenerateUUID(), p.ID, inv.userID, inviterID)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("error inviting user: %v", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("error checking invite result: %v", err)
		}
		if affected == 0 {
			continue
		}
		added++

		if err := appendLog(ctx, tx, p.ID, inviterID, "invited "+inv.username); err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing invites: %v", err)
	}
	return added, nil
}
