package verify

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/config"
	"github.com/jart/sparkles/internal/crypto"
	"github.com/jart/sparkles/internal/notify"
)

var testCaps = config.VerifyConfig{
	MaxEmailPerDay: 2,
	MaxPhonePerDay: 2,
	MaxXmppPerDay:  4,
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gateway := notify.NewGateway(db,
		notify.DisabledEmailSender{},
		notify.DisabledSmsSender{},
		notify.DisabledXmppSender{},
		notify.GatewayConfig{
			EmailFrom: "noreply@sparkles.org",
			SmsFrom:   "+15550006666",
			XmppFrom:  "sparkles@jabber.org",
		})

	// deterministic time, fresh entropy per call
	now := func() time.Time {
		return time.Date(2014, 2, 10, 12, 0, 0, 0, time.UTC)
	}
	codes := crypto.NewCodeGenerator(bytes.NewReader(bytes.Repeat([]byte{
		0, 7, 14, 21, 28, 35, 3, 9,
	}, 16)))
	return NewService(db, gateway, codes, testCaps, now), mock
}

func expectFreeEmail(mock sqlmock.Sqlmock, email string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM email_blacklist WHERE email = ?)")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func TestEmailIssueSuccess(t *testing.T) {
	s, mock := newTestService(t)
	email := "alice@example.com"

	expectFreeEmail(mock, email)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE email = ").
		WithArgs(email, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE ip = ").
		WithArgs("10.0.0.1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO email_verify").
		WithArgs(sqlmock.AnyArg(), email, sqlmock.AnyArg(), "10.0.0.1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO email_messages").
		WithArgs(sqlmock.AnyArg(), email, "noreply@sparkles.org",
			"Sparkles Email Verification Code", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Email(context.Background(), email, "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRateLimitedByIdentifier(t *testing.T) {
	s, mock := newTestService(t)
	email := "alice@example.com"

	expectFreeEmail(mock, email)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE email = ").
		WithArgs(email, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCaps.MaxEmailPerDay))

	err := s.Email(context.Background(), email, "10.0.0.1")
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRateLimitedByIP(t *testing.T) {
	s, mock := newTestService(t)
	email := "alice@example.com"

	expectFreeEmail(mock, email)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE email = ").
		WithArgs(email, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE ip = ").
		WithArgs("10.0.0.1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCaps.MaxEmailPerDay))

	err := s.Email(context.Background(), email, "10.0.0.1")
	assert.ErrorIs(t, err, common.ErrRateLimited)
}

func TestEmailIPCheckSkippedWithoutIP(t *testing.T) {
	s, mock := newTestService(t)
	email := "alice@example.com"

	expectFreeEmail(mock, email)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE email = ").
		WithArgs(email, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO email_verify").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO email_messages").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Email(context.Background(), email, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailBlacklisted(t *testing.T) {
	s, mock := newTestService(t)
	email := "spammer@example.com"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM email_blacklist WHERE email = ?)")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := s.Email(context.Background(), email, "10.0.0.1")
	assert.ErrorIs(t, err, common.ErrBlacklisted)
}

func TestEmailAlreadyRegistered(t *testing.T) {
	s, mock := newTestService(t)
	email := "taken@example.com"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)")).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := s.Email(context.Background(), email, "10.0.0.1")
	assert.ErrorIs(t, err, common.ErrIdentifierTaken)
}

func TestEmailBadFormat(t *testing.T) {
	s, _ := newTestService(t)
	for _, email := range []string{"", "no-at-sign", "a@b", "two@@example.com", "sp ace@example.com"} {
		err := s.Email(context.Background(), email, "10.0.0.1")
		assert.ErrorIs(t, err, common.ErrInvalidIdentifier, "email %q", email)
	}
}

func TestCheckPhoneNormalizesToE164(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM user_info WHERE phone = ?)")).
		WithArgs("+12025550134").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM phone_blacklist WHERE phone = ?)")).
		WithArgs("+12025550134").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	phone, err := s.CheckPhone(context.Background(), "202-555-0134")
	require.NoError(t, err)
	assert.Equal(t, "+12025550134", phone)
}

func TestCheckPhoneRejectsForeignNumbers(t *testing.T) {
	s, _ := newTestService(t)

	// well-formed UK number, wrong country code
	_, err := s.CheckPhone(context.Background(), "+44 20 7946 0958")
	assert.ErrorIs(t, err, common.ErrInvalidIdentifier)
}

func TestCheckPhoneRejectsGarbage(t *testing.T) {
	s, _ := newTestService(t)

	for _, phone := range []string{"", "123", "not a phone"} {
		_, err := s.CheckPhone(context.Background(), phone)
		assert.ErrorIs(t, err, common.ErrInvalidIdentifier, "phone %q", phone)
	}
}

func TestPhoneIssueSendsSms(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM user_info WHERE phone = ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM phone_blacklist WHERE phone = ?)")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM phone_verify WHERE phone = ").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM phone_verify WHERE ip = ").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO phone_verify").
		WithArgs(sqlmock.AnyArg(), "+12025550134", sqlmock.AnyArg(), "10.0.0.1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sms_messages").
		WithArgs(sqlmock.AnyArg(), "+12025550134", "+15550006666", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Phone(context.Background(), "(202) 555-0134", "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestXmppIssue(t *testing.T) {
	s, mock := newTestService(t)
	addr := "alice@jabber.org"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM user_info WHERE xmpp = ?)")).
		WithArgs(addr).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM xmpp_verify WHERE xmpp = ").
		WithArgs(addr, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM xmpp_verify WHERE ip = ").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO xmpp_verify").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO xmpp_messages").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Xmpp(context.Background(), addr, "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchCodeCaseInsensitive(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM email_verify WHERE email = ? AND LOWER(code) = LOWER(?))")).
		WithArgs("alice@example.com", "AB3D").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.MatchCode(context.Background(), KindEmail, "alice@example.com", "AB3D")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchCodeUnknownKind(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.MatchCode(context.Background(), Kind("pigeon"), "x", "y")
	assert.Error(t, err)
}

func TestTrailingWindowArgument(t *testing.T) {
	s, mock := newTestService(t)
	email := "alice@example.com"
	yesterday := time.Date(2014, 2, 9, 12, 0, 0, 0, time.UTC)

	expectFreeEmail(mock, email)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM email_verify WHERE email = ").
		WithArgs(email, yesterday).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCaps.MaxEmailPerDay))

	err := s.Email(context.Background(), email, "")
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.NoError(t, mock.ExpectationsWereMet())
}
