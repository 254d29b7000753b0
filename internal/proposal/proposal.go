// Package proposal owns proposals and everything attached to them:
// text revisions, chat, the action log, membership, and votes.
package proposal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/crypto"
	"github.com/jart/sparkles/internal/models"
	"github.com/jart/sparkles/internal/utils"
)

// SidLength is the number of base36 characters in a proposal's public
// short id.
const SidLength = 8

type Service struct {
	db    *sql.DB
	codes *crypto.CodeGenerator
}

func NewService(db *sql.DB, codes *crypto.CodeGenerator) *Service {
	return &Service{db: db, codes: codes}
}

// Create inserts a proposal, its first text revision, the creator's
// membership, and a log entry in one transaction. The sid is drawn
// from the same global namespace as usernames and workgroup names.
func (s *Service) Create(ctx context.Context, userID, title, text, workgroupID string) (*models.Proposal, error) {
	sid, err := s.newSid(ctx)
	if err != nil {
		return nil, err
	}

	p := &models.Proposal{
		ID:          utils.GenerateUUID(),
		Sid:         sid,
		UserID:      userID,
		WorkgroupID: workgroupID,
		Title:       title,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}

	var wg interface{}
	if workgroupID != "" {
		wg = workgroupID
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO proposals (id, sid, user_id, workgroup_id, title)
        VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Sid, p.UserID, wg, p.Title)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error creating proposal: %v", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO proposal_texts (id, proposal_id, user_id, content)
        VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), p.ID, userID, text)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error creating proposal text: %v", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO proposal_members (id, proposal_id, user_id, inviter_id)
        VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), p.ID, userID, userID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error adding proposal owner: %v", err)
	}

	if err := appendLog(ctx, tx, p.ID, userID, "created proposal"); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing proposal: %v", err)
	}
	return p, nil
}

// Get resolves a sid to the proposal plus its latest text revision.
func (s *Service) Get(ctx context.Context, sid string) (*models.Proposal, *models.ProposalText, error) {
	var p models.Proposal
	var wg sql.NullString
	err := s.db.QueryRowContext(ctx, `
        SELECT id, sid, user_id, workgroup_id, title, created_at
        FROM proposals WHERE sid = ?`, sid).Scan(
		&p.ID, &p.Sid, &p.UserID, &wg, &p.Title, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, common.ErrNotFound
	} else if err != nil {
		return nil, nil, fmt.Errorf("error loading proposal: %v", err)
	}
	p.WorkgroupID = wg.String

	var text models.ProposalText
	err = s.db.QueryRowContext(ctx, `
        SELECT id, proposal_id, user_id, content, created_at
        FROM proposal_texts WHERE proposal_id = ?
        ORDER BY created_at DESC, id DESC LIMIT 1`, p.ID).Scan(
		&text.ID, &text.ProposalID, &text.UserID, &text.Content, &text.CreatedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, fmt.Errorf("error loading proposal text: %v", err)
	}
	return &p, &text, nil
}

// AddText appends a new text revision. Only members may revise.
func (s *Service) AddText(ctx context.Context, sid, userID, content string) error {
	p, err := s.requireMember(ctx, sid, userID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO proposal_texts (id, proposal_id, user_id, content)
        VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), p.ID, userID, content)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error adding proposal text: %v", err)
	}
	if err := appendLog(ctx, tx, p.ID, userID, "revised text"); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AddChat appends a chat message. Only members may chat.
func (s *Service) AddChat(ctx context.Context, sid, userID, content string) error {
	p, err := s.requireMember(ctx, sid, userID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO proposal_chat (id, proposal_id, user_id, content)
        VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), p.ID, userID, content)
	if err != nil {
		return fmt.Errorf("error adding chat message: %v", err)
	}
	return nil
}

// Vote records or replaces the member's vote. One vote per
// (proposal, user); a revote overwrites the previous position.
func (s *Service) Vote(ctx context.Context, sid, userID, position string) error {
	switch position {
	case "aye", "nay", "abstain":
	default:
		return fmt.Errorf("invalid vote position %q", position)
	}

	p, err := s.requireMember(ctx, sid, userID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO votes (id, proposal_id, user_id, position)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE position = VALUES(position)`,
		utils.GenerateUUID(), p.ID, userID, position)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error recording vote: %v", err)
	}
	if err := appendLog(ctx, tx, p.ID, userID, "voted "+position); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Tally returns the vote counts by position.
func (s *Service) Tally(ctx context.Context, sid string) (map[string]int, error) {
	var proposalID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM proposals WHERE sid = ?", sid).Scan(&proposalID)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error loading proposal: %v", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT position, COUNT(*) FROM votes
        WHERE proposal_id = ? GROUP BY position`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("error tallying votes: %v", err)
	}
	defer rows.Close()

	tally := map[string]int{"aye": 0, "nay": 0, "abstain": 0}
	for rows.Next() {
		var position string
		var count int
		if err := rows.Scan(&position, &count); err != nil {
			return nil, fmt.Errorf("error scanning tally: %v", err)
		}
		tally[position] = count
	}
	return tally, rows.Err()
}

// Log returns the proposal's action log, newest first.
func (s *Service) Log(ctx context.Context, sid string) ([]models.ProposalLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT pl.id, pl.proposal_id, COALESCE(pl.user_id, ''), pl.content, pl.created_at
        FROM proposal_log pl
        JOIN proposals p ON pl.proposal_id = p.id
        WHERE p.sid = ?
        ORDER BY pl.created_at DESC, pl.id DESC`, sid)
	if err != nil {
		return nil, fmt.Errorf("error loading proposal log: %v", err)
	}
	defer rows.Close()

	var entries []models.ProposalLog
	for rows.Next() {
		var e models.ProposalLog
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.UserID, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning log entry: %v", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Service) requireMember(ctx context.Context, sid, userID string) (*models.Proposal, error) {
	var p models.Proposal
	var member bool
	err := s.db.QueryRowContext(ctx, `
        SELECT p.id, EXISTS(
            SELECT 1 FROM proposal_members pm
            WHERE pm.proposal_id = p.id AND pm.user_id = ?)
        FROM proposals p WHERE p.sid = ?`, userID, sid).Scan(&p.ID, &member)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error loading proposal: %v", err)
	}
	if !member {
		return nil, common.ErrNotMember
	}
	p.Sid = sid
	return &p, nil
}

func (s *Service) newSid(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		sid, err := s.codes.Code(SidLength)
		if err != nil {
			return "", fmt.Errorf("error generating sid: %v", err)
		}
		taken, err := common.NameTaken(ctx, s.db, sid)
		if err != nil {
			return "", err
		}
		if !taken {
			return sid, nil
		}
	}
	return "", fmt.Errorf("error generating sid: namespace exhausted")
}

func appendLog(ctx context.Context, tx *sql.Tx, proposalID, userID, content string) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO proposal_log (id, proposal_id, user_id, content)
        VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), proposalID, userID, content)
	if err != nil {
		return fmt.Errorf("error appending log entry: %v", err)
	}
	return nil
}
