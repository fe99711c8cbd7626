package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"group-chat/internal/domain"
)

type mockUserRepo struct {
	users     map[int64]domain.User
	nextID    int64
	lastSweep time.Time
	sweptRows int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]domain.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetOrCreateByName(_ context.Context, displayName string) (domain.User, error) {
	for _, user := range m.users {
		if user.DisplayName == displayName {
			return user, nil
		}
	}
	m.nextID++
	user := domain.User{ID: m.nextID, DisplayName: displayName, CreatedAt: time.Now().UTC()}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockUserRepo) SetPresence(_ context.Context, id int64, online bool, seenAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Online = online
	user.LastSeen = seenAt
	m.users[id] = user
	return nil
}

func (m *mockUserRepo) SweepStale(_ context.Context, olderThan time.Time) (int64, error) {
	m.lastSweep = olderThan
	var swept int64
	for id, user := range m.users {
		if user.Online && user.LastSeen.Before(olderThan) {
			user.Online = false
			m.users[id] = user
			swept++
		}
	}
	m.sweptRows = swept
	return swept, nil
}

func TestPresenceOnlineThenOffline_EmitsTwoSystemMessages(t *testing.T) {
	users := newMockUserRepo()
	messages := &mockMessageRepo{}
	svc := NewPresenceService(nil, users, messages, 0)

	ann, err := users.GetOrCreateByName(context.Background(), "ann")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.SetOnline(context.Background(), ann.ID); err != nil {
		t.Fatalf("set online: %v", err)
	}
	if err := svc.SetOffline(context.Background(), ann.ID); err != nil {
		t.Fatalf("set offline: %v", err)
	}

	if len(messages.messages) != 2 {
		t.Fatalf("expected exactly 2 system messages, got %d", len(messages.messages))
	}
	joined, left := messages.messages[0], messages.messages[1]
	if joined.Kind != domain.KindSystem || left.Kind != domain.KindSystem {
		t.Fatalf("expected system kind, got %q and %q", joined.Kind, left.Kind)
	}
	if joined.Text != "ann joined the chat!" {
		t.Fatalf("unexpected join text %q", joined.Text)
	}
	if left.Text != "ann left the chat." {
		t.Fatalf("unexpected leave text %q", left.Text)
	}
	if joined.ID >= left.ID {
		t.Fatalf("expected join before leave, ids %d and %d", joined.ID, left.ID)
	}
}

func TestPresenceTransitions_UpdateUserRow(t *testing.T) {
	users := newMockUserRepo()
	messages := &mockMessageRepo{}
	svc := NewPresenceService(nil, users, messages, 0)

	bob, _ := users.GetOrCreateByName(context.Background(), "bob")

	if err := svc.SetOnline(context.Background(), bob.ID); err != nil {
		t.Fatalf("set online: %v", err)
	}
	got, _ := users.GetByID(context.Background(), bob.ID)
	if !got.Online || got.LastSeen.IsZero() {
		t.Fatalf("expected online with last_seen set, got %+v", got)
	}

	if err := svc.SetOffline(context.Background(), bob.ID); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	got, _ = users.GetByID(context.Background(), bob.ID)
	if got.Online {
		t.Fatalf("expected offline, got %+v", got)
	}
}

func TestPresenceUnknownUser(t *testing.T) {
	svc := NewPresenceService(nil, newMockUserRepo(), &mockMessageRepo{}, 0)
	if err := svc.SetOnline(context.Background(), 42); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestPresenceSweep_IsSilent(t *testing.T) {
	users := newMockUserRepo()
	messages := &mockMessageRepo{}
	svc := NewPresenceService(nil, users, messages, 5*time.Minute)

	stale, _ := users.GetOrCreateByName(context.Background(), "stale-user")
	fresh, _ := users.GetOrCreateByName(context.Background(), "fresh-user")
	_ = users.SetPresence(context.Background(), stale.ID, true, time.Now().UTC().Add(-10*time.Minute))
	_ = users.SetPresence(context.Background(), fresh.ID, true, time.Now().UTC())

	swept, err := svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 user swept, got %d", swept)
	}
	if len(messages.messages) != 0 {
		t.Fatalf("sweep must not narrate into the feed, got %d messages", len(messages.messages))
	}

	gotStale, _ := users.GetByID(context.Background(), stale.ID)
	gotFresh, _ := users.GetByID(context.Background(), fresh.ID)
	if gotStale.Online {
		t.Fatalf("expected stale user forced offline")
	}
	if !gotFresh.Online {
		t.Fatalf("expected fresh user untouched")
	}
}

func TestPresenceSweep_CutoffUsesWindow(t *testing.T) {
	users := newMockUserRepo()
	svc := NewPresenceService(nil, users, &mockMessageRepo{}, 5*time.Minute)

	before := time.Now().UTC().Add(-5 * time.Minute)
	if _, err := svc.SweepStale(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	after := time.Now().UTC().Add(-5 * time.Minute)

	if users.lastSweep.Before(before.Add(-time.Second)) || users.lastSweep.After(after.Add(time.Second)) {
		t.Fatalf("expected cutoff near now-5m, got %v", users.lastSweep)
	}
}
