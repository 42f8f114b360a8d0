package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

type recordingBeacon struct {
	mu     sync.Mutex
	visits []string
}

func (b *recordingBeacon) LogVisit(_ context.Context, quiz, email string) {
	b.mu.Lock()
	b.visits = append(b.visits, quiz+"/"+email)
	b.mu.Unlock()
}

func (b *recordingBeacon) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		for _, v := range b.visits {
			if v == want {
				b.mu.Unlock()
				return
			}
		}
		b.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("beacon never saw %q", want)
}

func matches(emails ...string) model.Predicate {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		set[e] = true
	}
	return func(email string) bool { return set[email] }
}

func TestResolvePrecedence(t *testing.T) {
	desc := &model.ExamDescriptor{
		ID:      "exam-1",
		Admin:   matches("admin@x.org"),
		Allowed: matches("student@x.org", "admin@x.org", "auditor@x.org"),
		Read:    matches("observer@x.org"),
	}
	r := NewResolver(nil, zerolog.Nop())

	cases := []struct {
		email string
		want  model.AccessLevel
	}{
		// Admin outranks the allowed predicate even when both match.
		{"admin@x.org", model.AccessAdmin},
		{"student@x.org", model.AccessAllowed},
		{"observer@x.org", model.AccessReadOnly},
		{"stranger@x.org", model.AccessDenied},
	}

	for _, tc := range cases {
		res := r.Resolve(context.Background(), desc, model.Identity{Email: tc.email}, "")
		if res.Level != tc.want {
			t.Errorf("Resolve(%s) = %v, want %v", tc.email, res.Level, tc.want)
		}
		if res.Effective.Email != tc.email {
			t.Errorf("Resolve(%s) effective = %s", tc.email, res.Effective.Email)
		}
	}
}

func TestResolveMissingAllowedDefaultsOpen(t *testing.T) {
	desc := &model.ExamDescriptor{ID: "exam-1"}
	r := NewResolver(nil, zerolog.Nop())

	res := r.Resolve(context.Background(), desc, model.Identity{Email: "anyone@x.org"}, "")
	if res.Level != model.AccessAllowed {
		t.Errorf("level = %v, want allowed when no predicate is set", res.Level)
	}
}

func TestResolveImpersonationAdminOnly(t *testing.T) {
	desc := &model.ExamDescriptor{
		ID:      "exam-1",
		Admin:   matches("admin@x.org"),
		Allowed: matches("student@x.org"),
	}
	r := NewResolver(nil, zerolog.Nop())

	res := r.Resolve(context.Background(), desc, model.Identity{Email: "admin@x.org"}, "student@x.org")
	if !res.Impersonated {
		t.Fatal("admin impersonation not honored")
	}
	if res.Level != model.AccessAdmin {
		t.Errorf("level = %v, want admin retained while impersonating", res.Level)
	}
	if res.Effective.Email != "student@x.org" {
		t.Errorf("effective = %s, want student@x.org", res.Effective.Email)
	}

	// Non-admins cannot impersonate.
	res = r.Resolve(context.Background(), desc, model.Identity{Email: "student@x.org"}, "admin@x.org")
	if res.Impersonated || res.Effective.Email != "student@x.org" {
		t.Errorf("non-admin impersonation leaked: %+v", res)
	}
}

func TestResolveBeaconReportsRealIdentity(t *testing.T) {
	desc := &model.ExamDescriptor{
		ID:    "exam-1",
		Admin: matches("admin@x.org"),
	}
	beacon := &recordingBeacon{}
	r := NewResolver(beacon, zerolog.Nop())

	r.Resolve(context.Background(), desc, model.Identity{Email: "admin@x.org"}, "student@x.org")

	// The audit trail records who actually visited, not the impersonated
	// identity.
	beacon.waitFor(t, "exam-1/admin@x.org")
}
