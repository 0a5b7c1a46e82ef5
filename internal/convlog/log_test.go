package convlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"voiceagent-platform/internal/resilience"
)

func newTestLog() *Log {
	return NewLog(NewMemoryRepo(), resilience.NewBreaker("convlog", resilience.Settings{}, nil), nil)
}

func TestReadAllReturnsAppendOrder(t *testing.T) {
	ctx := context.Background()

	for _, n := range []int{0, 1, 2, 25} {
		l := newTestLog()
		for i := 0; i < n; i++ {
			role := RoleUser
			if i%2 == 1 {
				role = RoleAssistant
			}
			if err := l.Append(ctx, "c1", Message{Role: role, Content: fmt.Sprintf("turn-%d", i)}); err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
		}

		msgs, err := l.ReadAll(ctx, "c1")
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(msgs) != n {
			t.Fatalf("n=%d: expected %d messages, got %d", n, n, len(msgs))
		}
		for i, m := range msgs {
			if m.Content != fmt.Sprintf("turn-%d", i) {
				t.Fatalf("n=%d: position %d holds %q", n, i, m.Content)
			}
		}
	}
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	l := newTestLog()
	ctx := context.Background()

	if err := l.Append(ctx, "c1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	msgs, _ := l.ReadAll(ctx, "c1")
	if msgs[0].ID == "" {
		t.Fatalf("expected generated message id")
	}
	if msgs[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	l := newTestLog()
	ctx := context.Background()

	if err := l.Append(ctx, "", Message{Role: RoleUser, Content: "x"}); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("expected ErrInvalidCall, got %v", err)
	}
	if err := l.Append(ctx, "c1", Message{Role: Role("narrator"), Content: "x"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestCountAndClear(t *testing.T) {
	l := newTestLog()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Append(ctx, "c1", Message{Role: RoleUser, Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if n, _ := l.Count(ctx, "c1"); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	if err := l.Clear(ctx, "c1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := l.Count(ctx, "c1"); n != 0 {
		t.Fatalf("expected 0 after clear, got %d", n)
	}
	msgs, _ := l.ReadAll(ctx, "c1")
	if len(msgs) != 0 {
		t.Fatalf("expected empty log after clear")
	}
}

type failingRepo struct{ err error }

func (f *failingRepo) Append(context.Context, string, Message) error { return f.err }
func (f *failingRepo) ReadAll(context.Context, string) ([]Message, error) {
	return nil, f.err
}
func (f *failingRepo) Count(context.Context, string) (int64, error) { return 0, f.err }
func (f *failingRepo) Clear(context.Context, string) error          { return f.err }

func TestLogDegradesWhenRepoFails(t *testing.T) {
	l := NewLog(&failingRepo{err: errors.New("down")}, resilience.NewBreaker("convlog", resilience.Settings{}, nil), nil)
	ctx := context.Background()

	if err := l.Append(ctx, "c1", Message{Role: RoleUser, Content: "x"}); err != nil {
		t.Fatalf("append should degrade to no-op: %v", err)
	}
	msgs, err := l.ReadAll(ctx, "c1")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("read should degrade to empty: msgs=%v err=%v", msgs, err)
	}
	if n, err := l.Count(ctx, "c1"); err != nil || n != 0 {
		t.Fatalf("count should degrade to zero: n=%d err=%v", n, err)
	}
}
