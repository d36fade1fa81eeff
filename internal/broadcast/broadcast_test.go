package broadcast

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-line/internal/engine"
	"github.com/the-line/internal/notify"
)

type fakeRecorder struct {
	actions    []string
	broadcasts []string
}

func (r *fakeRecorder) RecordAction(ctx context.Context, userID int64, action string) {
	r.actions = append(r.actions, action)
}

func (r *fakeRecorder) RecordBroadcast(ctx context.Context, adminID int64, text string) {
	r.broadcasts = append(r.broadcasts, text)
}

type fixedMembers map[int64][]engine.Member

func (f fixedMembers) Snapshot(orgID int64) []engine.Member { return f[orgID] }

type fakeMessenger struct {
	sent map[int64]string
}

func (m *fakeMessenger) Send(ctx context.Context, userID int64, text string) error {
	if userID == 13 {
		return notify.ErrRecipientOffline
	}
	m.sent[userID] = text
	return nil
}

func TestService_Broadcast(t *testing.T) {
	rec := &fakeRecorder{}
	msgr := &fakeMessenger{sent: map[int64]string{}}
	members := fixedMembers{2: {{UserID: 5, Name: "Eve"}, {UserID: 13, Name: "Offline"}, {UserID: 6, Name: "Frank"}}}
	svc := NewService(rec, members, notify.NewDispatcher(msgr, nil))

	report, err := svc.Broadcast(context.Background(), 1, "Olena", "  Office closes at 5  ", 2)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, []int64{13}, report.Failed)
	assert.Equal(t, "📢 Announcement from administrator Olena:\nOffice closes at 5", msgr.sent[6])
	assert.Equal(t, []string{"Office closes at 5"}, rec.broadcasts)
	assert.Equal(t, []string{"broadcast_message_org_2: Office closes at 5..."}, rec.actions)
}

func TestService_EmptyMessage(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewService(rec, fixedMembers{}, notify.NewDispatcher(&fakeMessenger{sent: map[int64]string{}}, nil))

	_, err := svc.Broadcast(context.Background(), 1, "Olena", "   ", 2)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, rec.broadcasts)
	assert.Empty(t, rec.actions)
}

func TestService_NoMembersStillRecords(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewService(rec, fixedMembers{}, notify.NewDispatcher(&fakeMessenger{sent: map[int64]string{}}, nil))

	report, err := svc.Broadcast(context.Background(), 1, "Olena", "hello", 9)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Len(t, rec.broadcasts, 1)
}

func TestHistoryLabel_TruncatesByRune(t *testing.T) {
	long := strings.Repeat("я", 80)
	label := historyLabel(3, long)
	assert.Equal(t, "broadcast_message_org_3: "+strings.Repeat("я", 50)+"...", label)
}
