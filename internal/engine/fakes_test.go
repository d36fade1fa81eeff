package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/notify"
)

var errStoreDown = errors.New("store unavailable")

type rowKey struct{ user, org int64 }

// memStore keeps queue rows in a map and counts calls per operation.
type memStore struct {
	mu      sync.Mutex
	rows    map[rowKey]database.QueueEntry
	history []database.HistoryRecord
	calls   map[string]int
	failOps map[string]bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[rowKey]database.QueueEntry), calls: make(map[string]int), failOps: make(map[string]bool)}
}

func (s *memStore) hit(op string) error {
	s.calls[op]++
	if s.failOps[op] {
		return errStoreDown
	}
	return nil
}

func (s *memStore) setFail(op string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps[op] = fail
}

func (s *memStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *memStore) LoadQueue(ctx context.Context) ([]database.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("load"); err != nil {
		return nil, err
	}
	out := make([]database.QueueEntry, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinTime.Before(out[j].JoinTime) })
	return out, nil
}

func (s *memStore) ReplaceQueue(ctx context.Context, entries []database.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("replace"); err != nil {
		return err
	}
	s.rows = make(map[rowKey]database.QueueEntry)
	for _, e := range entries {
		s.rows[rowKey{e.UserID, e.OrgID}] = e
	}
	return nil
}

func (s *memStore) InsertQueueEntry(ctx context.Context, e database.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("insert"); err != nil {
		return err
	}
	s.rows[rowKey{e.UserID, e.OrgID}] = e
	return nil
}

func (s *memStore) DeleteQueueEntry(ctx context.Context, userID, orgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("delete"); err != nil {
		return err
	}
	delete(s.rows, rowKey{userID, orgID})
	return nil
}

func (s *memStore) DeleteOrganizationQueue(ctx context.Context, orgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("clear"); err != nil {
		return err
	}
	for k := range s.rows {
		if k.org == orgID {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *memStore) ClearQueue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("clear_all"); err != nil {
		return err
	}
	s.rows = make(map[rowKey]database.QueueEntry)
	return nil
}

func (s *memStore) UserHistory(ctx context.Context, userID int64) ([]database.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("history"); err != nil {
		return nil, err
	}
	return s.history, nil
}

// stored returns the user ids of one organization in stored join order.
func (s *memStore) stored(orgID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []database.QueueEntry
	for k, r := range s.rows {
		if k.org == orgID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].JoinTime.Before(rows[j].JoinTime) })
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids
}

type action struct {
	userID int64
	label  string
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions []action
}

func (r *fakeRecorder) RecordAction(ctx context.Context, userID int64, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action{userID, label})
}

type fakeNotifier struct {
	mu        sync.Mutex
	fanOuts   [][]notify.Recipient
	reminders []notify.Recipient
}

func (n *fakeNotifier) NotifyPositions(ctx context.Context, recipients []notify.Recipient) notify.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fanOuts = append(n.fanOuts, recipients)
	return notify.Report{Attempted: len(recipients), Delivered: len(recipients)}
}

func (n *fakeNotifier) Remind(ctx context.Context, r notify.Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, r)
	return nil
}

type armed struct {
	orgID int64
	epoch uint64
}

type fakeReminders struct {
	mu        sync.Mutex
	armed     []armed
	cancelled []int64
}

func (f *fakeReminders) Arm(orgID int64, epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, armed{orgID, epoch})
}

func (f *fakeReminders) Cancel(orgID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orgID)
}

func (f *fakeReminders) last() armed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed[len(f.armed)-1]
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
