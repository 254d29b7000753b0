package proposal

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jart/sparkles/internal/common"
	"github.com/jart/sparkles/internal/crypto"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, crypto.NewCodeGenerator(nil)), mock
}

func expectMembership(mock sqlmock.Sqlmock, proposalID string, member bool) {
	mock.ExpectQuery("SELECT p.id, EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "member"}).AddRow(proposalID, member))
}

func TestInviteSingleUser(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", true)
	mock.ExpectQuery("SELECT id FROM users WHERE LOWER\\(username\\)").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-bob"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO proposal_members").
		WithArgs(sqlmock.AnyArg(), "prop-1", "user-bob", "user-alice").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO proposal_log").
		WithArgs(sqlmock.AnyArg(), "prop-1", "user-alice", "invited bob").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	added, err := s.Invite(context.Background(), "abc123de", "user-alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteWorkgroupFansOut(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", true)
	mock.ExpectQuery("SELECT id FROM users WHERE LOWER\\(username\\)").
		WithArgs("devs").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM workgroups WHERE LOWER\\(username\\)").
		WithArgs("devs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("wg-devs"))
	mock.ExpectQuery("SELECT wm.user_id, u.username").
		WithArgs("wg-devs").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username"}).
			AddRow("user-bob", "bob").
			AddRow("user-carol", "carol").
			AddRow("user-dave", "dave"))
	mock.ExpectBegin()
	for _, u := range []string{"bob", "carol", "dave"} {
		mock.ExpectExec("INSERT IGNORE INTO proposal_members").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO proposal_log").
			WithArgs(sqlmock.AnyArg(), "prop-1", "user-alice", "invited "+u).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	added, err := s.Invite(context.Background(), "abc123de", "user-alice", "devs")
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteExistingMembersAbsorbed(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", true)
	mock.ExpectQuery("SELECT id FROM users WHERE LOWER\\(username\\)").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM workgroups WHERE LOWER\\(username\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("wg-devs"))
	mock.ExpectQuery("SELECT wm.user_id, u.username").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username"}).
			AddRow("user-bob", "bob").
			AddRow("user-carol", "carol"))
	mock.ExpectBegin()
	// bob is already a member; no log entry for him
	mock.ExpectExec("INSERT IGNORE INTO proposal_members").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT IGNORE INTO proposal_members").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO proposal_log").
		WithArgs(sqlmock.AnyArg(), "prop-1", "user-alice", "invited carol").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	added, err := s.Invite(context.Background(), "abc123de", "user-alice", "devs")
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteUnknownTarget(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", true)
	mock.ExpectQuery("SELECT id FROM users WHERE LOWER\\(username\\)").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM workgroups WHERE LOWER\\(username\\)").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Invite(context.Background(), "abc123de", "user-alice", "nobody")
	assert.ErrorIs(t, err, common.ErrUnknownTarget)
}

func TestInviteRequiresMembership(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", false)

	_, err := s.Invite(context.Background(), "abc123de", "user-mallory", "bob")
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestInviteMissingProposal(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT p.id, EXISTS").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Invite(context.Background(), "zzzzzzzz", "user-alice", "bob")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestInviteRollsBackOnLogFailure(t *testing.T) {
	s, mock := newTestService(t)

	expectMembership(mock, "prop-1", true)
	mock.ExpectQuery("SELECT id FROM users WHERE LOWER\\(username\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-bob"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO proposal_members").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO proposal_log").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := s.Invite(context.Background(), "abc123de", "user-alice", "bob")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
