// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := Open("sqlite3", dsn, 4)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(context.Background(), db, "sqlite3")
	require.NoError(t, err)
	return store
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "whatever", 1)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestStore_QueueRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	orgID, err := store.EnsureOrganization(ctx, "Registry Office")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUser(ctx, 1, "Alice", "+100"))
	require.NoError(t, store.UpsertUser(ctx, 2, "Bob", "+200"))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []QueueEntry{
		{UserID: 2, OrgID: orgID, JoinTime: base.Add(2 * time.Second)},
		{UserID: 1, OrgID: orgID, JoinTime: base.Add(1 * time.Second)},
	}
	require.NoError(t, store.ReplaceQueue(ctx, entries))

	loaded, err := store.LoadQueue(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, int64(1), loaded[0].UserID, "entries come back in join order")
	assert.Equal(t, "Alice", loaded[0].UserName)
	assert.True(t, loaded[0].JoinTime.Equal(base.Add(time.Second)))
	assert.Equal(t, int64(2), loaded[1].UserID)

	require.NoError(t, store.DeleteQueueEntry(ctx, 1, orgID))
	require.NoError(t, store.InsertQueueEntry(ctx, QueueEntry{UserID: 1, OrgID: orgID, JoinTime: base.Add(3 * time.Second)}))

	loaded, err = store.LoadQueue(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, int64(2), loaded[0].UserID)
	assert.Equal(t, int64(1), loaded[1].UserID)

	require.NoError(t, store.DeleteOrganizationQueue(ctx, orgID))
	loaded, err = store.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_ReplaceQueueWithNothingClears(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	orgID, err := store.EnsureOrganization(ctx, "Clinic")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUser(ctx, 7, "Carol", "+700"))
	require.NoError(t, store.InsertQueueEntry(ctx, QueueEntry{UserID: 7, OrgID: orgID, JoinTime: time.Now()}))

	require.NoError(t, store.ReplaceQueue(ctx, nil))

	loaded, err := store.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_UsersAndAdmin(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.PhoneOf(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "unknown user has no phone")

	isAdmin, err := store.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isAdmin, "unknown user is not an admin")

	require.NoError(t, store.UpsertUser(ctx, 42, "Dave", "+420"))
	require.NoError(t, store.SetAdmin(ctx, 42, true))

	// an update keeps the admin flag
	require.NoError(t, store.UpsertUser(ctx, 42, "David", "+421"))

	phone, ok, err := store.PhoneOf(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "+421", phone)

	isAdmin, err = store.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	user, err := store.GetUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "David", user.Name)

	assert.Error(t, store.SetAdmin(ctx, 999, true), "unknown user cannot be promoted")
}

func TestStore_HistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertUser(ctx, 5, "Eve", "+500"))
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(ctx, 5, "join_queue_org_1", base))
	require.NoError(t, store.AppendHistory(ctx, 5, "leave_queue_org_1", base.Add(time.Minute)))
	require.NoError(t, store.AppendBroadcast(ctx, 5, "hello", base))

	records, err := store.UserHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "leave_queue_org_1", records[0].Action)
	assert.Equal(t, "Eve", records[0].UserName)
	assert.Equal(t, "join_queue_org_1", records[1].Action)
}

func TestStore_Organizations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.EnsureOrganization(ctx, "North Campus")
	require.NoError(t, err)
	again, err := store.EnsureOrganization(ctx, "North Campus")
	require.NoError(t, err)
	assert.Equal(t, first, again, "names are unique")

	_, err = store.EnsureOrganization(ctx, "South Campus")
	require.NoError(t, err)

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "North Campus", orgs[0].Name)

	exists, err := store.OrganizationExists(ctx, first)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.OrganizationExists(ctx, first+100)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewStore_MySQLRunsStatementsSeparately(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range mysqlSchema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	_, err = NewStore(context.Background(), db, "mysql")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceQueue_RollbackErrorsAreCombined(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &Store{db: db, driver: "mysql"}
	insertErr := errors.New("constraint failed")
	rollbackErr := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM queue")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO queue")).
		ExpectExec().
		WithArgs(int64(1), int64(9), sqlmock.AnyArg()).
		WillReturnError(insertErr)
	mock.ExpectRollback().WillReturnError(rollbackErr)

	err = store.ReplaceQueue(context.Background(), []QueueEntry{{UserID: 1, OrgID: 9, JoinTime: time.Now()}})
	require.Error(t, err)
	assert.ErrorIs(t, err, insertErr)
	assert.ErrorIs(t, err, rollbackErr)

	var merr *multierror.Error
	assert.True(t, errors.As(err, &merr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAdmin_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := &Store{db: db, driver: "mysql"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_admin FROM users")).
		WithArgs(int64(3)).
		WillReturnError(errors.New("server has gone away"))

	isAdmin, err := store.IsAdmin(context.Background(), 3)
	assert.Error(t, err)
	assert.False(t, isAdmin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecentBroadcasts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpsertUser(ctx, 1, "Olena", "+1"))
	require.NoError(t, store.UpsertUser(ctx, 2, "Petro", "+2"))
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendBroadcast(ctx, 1, "first", base))
	require.NoError(t, store.AppendBroadcast(ctx, 2, "second", base.Add(time.Minute)))
	require.NoError(t, store.AppendBroadcast(ctx, 1, "third", base.Add(2*time.Minute)))

	records, err := store.RecentBroadcasts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Text)
	assert.Equal(t, "Olena", records[0].AdminName)

	records, err = store.RecentBroadcasts(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.RecentBroadcasts(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "second", records[0].Text)
}
