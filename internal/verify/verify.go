// Package verify issues out-of-band verification codes for the
// contact channels claimed during signup. Every issuance is written
// to a per-channel ledger table; the ledger is never pruned and
// doubles as the rate-limit history.
package verify

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/config"
	"github.com/jart/sparkles/internal/crypto"
	"github.com/jart/sparkles/internal/models"
	"github.com/jart/sparkles/internal/notify"
	"github.com/jart/sparkles/internal/utils"
)

// CodeLength is the number of base36 characters in a verification
// code.
const CodeLength = 4

// emailish covers both email and XMPP addresses (a JID has the same
// local@domain shape).
var emailish = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
	KindXmpp  Kind = "xmpp"
)

type Service struct {
	db      *sql.DB
	gateway *notify.Gateway
	codes   *crypto.CodeGenerator
	caps    config.VerifyConfig
	now     func() time.Time
}

// NewService wires the issuer. now may be nil, which means UTC
// wall-clock time.
func NewService(db *sql.DB, gateway *notify.Gateway, codes *crypto.CodeGenerator, caps config.VerifyConfig, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{db: db, gateway: gateway, codes: codes, caps: caps, now: now}
}

// CheckEmail validates an email claim without issuing a code: format,
// not already registered, not blacklisted.
func (s *Service) CheckEmail(ctx context.Context, email string) error {
	if !emailish.MatchString(email) {
		return common.ErrInvalidIdentifier
	}
	taken, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email)
	if err != nil {
		return err
	}
	if taken {
		return common.ErrIdentifierTaken
	}
	listed, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM email_blacklist WHERE email = ?)", email)
	if err != nil {
		return err
	}
	if listed {
		return common.ErrBlacklisted
	}
	return nil
}

// CheckPhone validates a phone claim and returns its E.164 form.
// Only North-American (country code 1) numbers are accepted.
func (s *Service) CheckPhone(ctx context.Context, raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", common.ErrInvalidIdentifier
	}
	if num.GetCountryCode() != 1 {
		return "", common.ErrInvalidIdentifier
	}
	phone := phonenumbers.Format(num, phonenumbers.E164)

	taken, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM user_info WHERE phone = ?)", phone)
	if err != nil {
		return "", err
	}
	if taken {
		return "", common.ErrIdentifierTaken
	}
	listed, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM phone_blacklist WHERE phone = ?)", phone)
	if err != nil {
		return "", err
	}
	if listed {
		return "", common.ErrBlacklisted
	}
	return phone, nil
}

// CheckXmpp validates an XMPP address claim. There is no XMPP
// blacklist table.
func (s *Service) CheckXmpp(ctx context.Context, addr string) error {
	if !emailish.MatchString(addr) {
		return common.ErrInvalidIdentifier
	}
	taken, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM user_info WHERE xmpp = ?)", addr)
	if err != nil {
		return err
	}
	if taken {
		return common.ErrIdentifierTaken
	}
	return nil
}

// Email validates the address, enforces the daily caps, then issues
// and mails a code.
func (s *Service) Email(ctx context.Context, email, ip string) error {
	if err := s.CheckEmail(ctx, email); err != nil {
		return err
	}
	if err := s.checkCaps(ctx, "email_verify", "email", email, ip, s.caps.MaxEmailPerDay); err != nil {
		return err
	}
	code, err := s.issue(ctx, "email_verify", "email", email, ip)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("<p>Your Sparkles verification code is: <b>%s</b></p>", code)
	return s.gateway.SendEmail(ctx, email, "Sparkles Email Verification Code", body)
}

// Phone validates and normalizes the number, enforces the daily caps,
// then issues and texts a code. The ledger stores the E.164 form.
func (s *Service) Phone(ctx context.Context, raw, ip string) error {
	phone, err := s.CheckPhone(ctx, raw)
	if err != nil {
		return err
	}
	if err := s.checkCaps(ctx, "phone_verify", "phone", phone, ip, s.caps.MaxPhonePerDay); err != nil {
		return err
	}
	code, err := s.issue(ctx, "phone_verify", "phone", phone, ip)
	if err != nil {
		return err
	}
	return s.gateway.SendSms(ctx, phone, "sparkles phone auth code: "+code)
}

// Xmpp validates the address, enforces the daily caps, then issues
// and messages a code.
func (s *Service) Xmpp(ctx context.Context, addr, ip string) error {
	if err := s.CheckXmpp(ctx, addr); err != nil {
		return err
	}
	if err := s.checkCaps(ctx, "xmpp_verify", "xmpp", addr, ip, s.caps.MaxXmppPerDay); err != nil {
		return err
	}
	code, err := s.issue(ctx, "xmpp_verify", "xmpp", addr, ip)
	if err != nil {
		return err
	}
	return s.gateway.SendXmpp(ctx, addr, "sparkles xmpp auth code: "+code)
}

// MatchCode reports whether code matches any issued code for the
// identifier, case-insensitively. Codes never expire on their own;
// reuse is bounded by the issuance caps, not by invalidation.
func (s *Service) MatchCode(ctx context.Context, kind Kind, identifier, code string) (bool, error) {
	table, column, err := kindTable(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND LOWER(code) = LOWER(?))",
		table, column)
	return s.exists(ctx, query, identifier, code)
}

// checkCaps enforces the trailing-24h issuance caps. The window is
// now minus exactly 24 hours, not a calendar day. The IP cap is
// skipped when no IP is known (server-side calls).
func (s *Service) checkCaps(ctx context.Context, table, column, identifier, ip string, limit int) error {
	yesterday := s.now().Add(-24 * time.Hour)

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND created_at > ?", table, column)
	if err := s.db.QueryRowContext(ctx, query, identifier, yesterday).Scan(&count); err != nil {
		return fmt.Errorf("error counting issuances: %v", err)
	}
	if count >= limit {
		return common.ErrRateLimited
	}

	if ip != "" {
		query = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE ip = ? AND created_at > ?", table)
		if err := s.db.QueryRowContext(ctx, query, ip, yesterday).Scan(&count); err != nil {
			return fmt.Errorf("error counting issuances by ip: %v", err)
		}
		if count >= limit {
			return common.ErrRateLimited
		}
	}
	return nil
}

func (s *Service) issue(ctx context.Context, table, column, identifier, ip string) (string, error) {
	code, err := s.codes.Code(CodeLength)
	if err != nil {
		return "", fmt.Errorf("error generating code: %v", err)
	}
	rec := models.VerifyRecord{
		ID:         utils.GenerateUUID(),
		Identifier: identifier,
		Code:       code,
		IP:         ip,
	}
	query := fmt.Sprintf("INSERT INTO %s (id, %s, code, ip) VALUES (?, ?, ?, ?)", table, column)
	if _, err := s.db.ExecContext(ctx, query, rec.ID, rec.Identifier, rec.Code, rec.IP); err != nil {
		return "", fmt.Errorf("error recording issuance: %v", err)
	}
	return code, nil
}

func (s *Service) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("error querying database: %v", err)
	}
	return found, nil
}

func kindTable(kind Kind) (table, column string, err error) {
	switch kind {
	case KindEmail:
		return "email_verify", "email", nil
	case KindPhone:
		return "phone_verify", "phone", nil
	case KindXmpp:
		return "xmpp_verify", "xmpp", nil
	default:
		return "", "", fmt.Errorf("unknown verification kind %q", kind)
	}
}
