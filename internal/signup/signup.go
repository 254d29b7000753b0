// Package signup runs the two-step account creation workflow:
// collect identity claims and issue verification codes, then confirm
// the codes and create the account atomically.
package signup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/models"
	"github.com/jart/sparkles/internal/utils"
	"github.com/jart/sparkles/internal/verify"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,12}$`)

type Form struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Xmpp     string `json:"xmpp"`
}

type Codes struct {
	Token string `json:"token" binding:"required"`
	Email string `json:"email_code" binding:"required"`
	Phone string `json:"phone_code" binding:"required"`
	Xmpp  string `json:"xmpp_code"`
}

type Service struct {
	db       *sql.DB
	verifier *verify.Service
	sessions *SessionStore
}

func NewService(db *sql.DB, verifier *verify.Service, sessions *SessionStore) *Service {
	return &Service{db: db, verifier: verifier, sessions: sessions}
}

// FieldError ties a validation failure to the form field that caused
// it, so the caller can render field-level messages.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Begin validates the collected claims, issues one verification code
// per claimed channel, and parks the claims in the session store. It
// returns the resume token. No account rows are written.
func (s *Service) Begin(ctx context.Context, form *Form, ip string) (string, error) {
	if !usernameRe.MatchString(form.Username) {
		return "", &FieldError{"username", common.ErrInvalidIdentifier}
	}
	taken, err := common.NameTaken(ctx, s.db, form.Username)
	if err != nil {
		return "", err
	}
	if taken {
		return "", &FieldError{"username", common.ErrIdentifierTaken}
	}
	if len(form.Password) < 6 {
		return "", &FieldError{"password", common.ErrInvalidIdentifier}
	}
	if err := s.verifier.CheckEmail(ctx, form.Email); err != nil {
		return "", &FieldError{"email", err}
	}
	phone, err := s.verifier.CheckPhone(ctx, form.Phone)
	if err != nil {
		return "", &FieldError{"phone", err}
	}
	if form.Xmpp != "" {
		if err := s.verifier.CheckXmpp(ctx, form.Xmpp); err != nil {
			return "", &FieldError{"xmpp", err}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %v", err)
	}

	if err := s.verifier.Email(ctx, form.Email, ip); err != nil {
		return "", &FieldError{"email", err}
	}
	if err := s.verifier.Phone(ctx, form.Phone, ip); err != nil {
		return "", &FieldError{"phone", err}
	}
	if form.Xmpp != "" {
		if err := s.verifier.Xmpp(ctx, form.Xmpp, ip); err != nil {
			return "", &FieldError{"xmpp", err}
		}
	}

	return s.sessions.Put(ctx, &State{
		Username: form.Username,
		Password: string(hash),
		Email:    form.Email,
		Phone:    phone,
		Xmpp:     form.Xmpp,
	})
}

// Confirm checks the submitted codes against the issuance ledgers and
// creates the account. The user plus profile insert runs in one
// transaction; a concurrent signup that won the race on any
// identifier makes this one fail with ErrIdentifierTaken, never a
// silent success or a partial account.
func (s *Service) Confirm(ctx context.Context, codes *Codes) (*models.User, error) {
	state, err := s.sessions.Get(ctx, codes.Token)
	if err != nil {
		return nil, err
	}

	if err := s.matchCode(ctx, verify.KindEmail, state.Email, codes.Email, "email_code"); err != nil {
		return nil, err
	}
	if err := s.matchCode(ctx, verify.KindPhone, state.Phone, codes.Phone, "phone_code"); err != nil {
		return nil, err
	}
	if state.Xmpp != "" {
		if err := s.matchCode(ctx, verify.KindXmpp, state.Xmpp, codes.Xmpp, "xmpp_code"); err != nil {
			return nil, err
		}
	}

	// Identifiers may have been claimed by a concurrent signup since
	// Begin. Re-check, then let the unique keys inside the tx settle
	// any remaining race.
	if err := s.recheckClaims(ctx, state); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       utils.GenerateUUID(),
		Username: state.Username,
		Email:    state.Email,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO users (id, username, email, password) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, state.Password)
	if err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			return nil, common.ErrIdentifierTaken
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO user_info (id, user_id, phone, xmpp) VALUES (?, ?, ?, ?)`,
		utils.GenerateUUID(), user.ID, state.Phone, state.Xmpp)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error creating user info: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing signup: %v", err)
	}

	if err := s.sessions.Delete(ctx, codes.Token); err != nil {
		// The account exists; a stale session key is harmless.
		log.Printf("warning: error deleting signup session: %v", err)
	}
	return user, nil
}

func (s *Service) matchCode(ctx context.Context, kind verify.Kind, identifier, code, field string) error {
	if strings.TrimSpace(code) == "" {
		return &FieldError{field, common.ErrIncorrectCode}
	}
	ok, err := s.verifier.MatchCode(ctx, kind, identifier, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	if !ok {
		return &FieldError{field, common.ErrIncorrectCode}
	}
	return nil
}

func (s *Service) recheckClaims(ctx context.Context, state *State) error {
	taken, err := common.NameTaken(ctx, s.db, state.Username)
	if err != nil {
		return err
	}
	if taken {
		return &FieldError{"username", common.ErrIdentifierTaken}
	}
	if err := s.verifier.CheckEmail(ctx, state.Email); err != nil {
		return &FieldError{"email", err}
	}
	if _, err := s.verifier.CheckPhone(ctx, state.Phone); err != nil {
		return &FieldError{"phone", err}
	}
	if state.Xmpp != "" {
		if err := s.verifier.CheckXmpp(ctx, state.Xmpp); err != nil {
			return &FieldError{"xmpp", err}
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Error 1062")
}
