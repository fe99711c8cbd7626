package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"group-chat/internal/domain"
)

type mockMessageRepo struct {
	messages  []domain.Message
	nextID    int64
	appendErr error
	lastAfter int64
	lastLimit int
}

func (m *mockMessageRepo) Append(_ context.Context, message domain.Message) (int64, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.nextID++
	message.ID = m.nextID
	m.messages = append(m.messages, message)
	return message.ID, nil
}

func (m *mockMessageRepo) ListAfter(_ context.Context, afterID int64, limit int) ([]domain.Message, error) {
	m.lastAfter = afterID
	m.lastLimit = limit
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ID <= afterID {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestFeedServiceSend_RejectsEmptyMessage(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	cases := []string{"", "   ", "\n\t"}
	for i, text := range cases {
		if _, err := svc.Send(context.Background(), 1, text, nil); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("case %d expected ErrEmptyMessage, got %v", i, err)
		}
	}
	if len(repo.messages) != 0 {
		t.Fatalf("expected no appends, got %d", len(repo.messages))
	}
}

func TestFeedServiceSend_AttachmentOnlyIsValid(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	att := &domain.Attachment{Path: "uploads/abc.png", OriginalName: "cat.png", MimeType: "image/png"}
	id, err := svc.Send(context.Background(), 7, "", att)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	if repo.messages[0].Attachment == nil || repo.messages[0].Attachment.Path != "uploads/abc.png" {
		t.Fatalf("expected attachment persisted, got %+v", repo.messages[0].Attachment)
	}
}

func TestFeedServiceSend_RejectsTooLong(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	long := strings.Repeat("a", MaxMessageLength+1)
	if _, err := svc.Send(context.Background(), 1, long, nil); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
	exact := strings.Repeat("a", MaxMessageLength)
	if _, err := svc.Send(context.Background(), 1, exact, nil); err != nil {
		t.Fatalf("expected exact-length message accepted, got %v", err)
	}
}

func TestFeedServiceSend_TrimsAndDefaults(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	if _, err := svc.Send(context.Background(), 3, "  hola  ", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := repo.messages[0]
	if got.Text != "hola" {
		t.Fatalf("expected trimmed text, got %q", got.Text)
	}
	if got.Kind != domain.KindUser {
		t.Fatalf("expected kind user, got %q", got.Kind)
	}
	if got.AuthorID != 3 {
		t.Fatalf("expected author 3, got %d", got.AuthorID)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at set")
	}
}

func TestFeedServiceSend_MonotonicIDs(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	var last int64
	for i := 0; i < 10; i++ {
		id, err := svc.Send(context.Background(), 1, "msg", nil)
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		if id <= last {
			t.Fatalf("expected strictly increasing ids, got %d after %d", id, last)
		}
		last = id
	}
}

func TestFeedServiceFetch_ClampsLimit(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	for _, limit := range []int{0, -5, 101, 100000} {
		if _, err := svc.Fetch(context.Background(), 0, limit); err != nil {
			t.Fatalf("fetch limit %d: %v", limit, err)
		}
		if repo.lastLimit != MaxFetchLimit {
			t.Fatalf("limit %d: expected clamp to %d, repo saw %d", limit, MaxFetchLimit, repo.lastLimit)
		}
	}

	if _, err := svc.Fetch(context.Background(), 0, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if repo.lastLimit != 10 {
		t.Fatalf("expected limit 10 passed through, repo saw %d", repo.lastLimit)
	}
}

func TestFeedServiceFetch_NeverReturnsCursorOrOlder(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	for i := 0; i < 20; i++ {
		if _, err := svc.Send(context.Background(), 1, "msg", nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	for _, after := range []int64{0, 5, 19, 20, 99} {
		rows, err := svc.Fetch(context.Background(), after, 100)
		if err != nil {
			t.Fatalf("fetch after %d: %v", after, err)
		}
		for _, row := range rows {
			if row.ID <= after {
				t.Fatalf("fetch(%d) returned id %d", after, row.ID)
			}
		}
	}
}

// El contrato del polling: repetir fetch con el cursor avanzado entrega
// cada mensaje exactamente una vez, en orden, sin pasarse de una página.
func TestFeedServiceFetch_AdvancingCursorSeesEachRowOnce(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewFeedService(repo)

	const total = 250
	for i := 0; i < total; i++ {
		if _, err := svc.Send(context.Background(), 1, "msg", nil); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	var cursor int64
	var seen []int64
	for {
		rows, err := svc.Fetch(context.Background(), cursor, MaxFetchLimit)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(rows) > MaxFetchLimit {
			t.Fatalf("page of %d rows exceeds cap", len(rows))
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			seen = append(seen, row.ID)
		}
		cursor = rows[len(rows)-1].ID
	}

	if len(seen) != total {
		t.Fatalf("expected %d rows total, got %d", total, len(seen))
	}
	for i, id := range seen {
		if id != int64(i+1) {
			t.Fatalf("expected id %d at position %d, got %d", i+1, i, id)
		}
	}
}

func TestFeedServiceSend_PropagatesStorageError(t *testing.T) {
	repo := &mockMessageRepo{appendErr: errors.New("db down")}
	svc := NewFeedService(repo)

	if _, err := svc.Send(context.Background(), 1, "hola", nil); err == nil {
		t.Fatalf("expected storage error propagated")
	}
}
