package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/model"
)

func TestSubmitAccepted(t *testing.T) {
	var got model.SignedSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submit" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"status": "ok"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	sub := &model.SignedSubmission{
		Quiz:      "exam-1",
		Email:     "a@x.org",
		Total:     3,
		Hash:      "abc",
		Signature: "sealed",
	}
	if err := c.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Quiz != "exam-1" || got.Hash != "abc" {
		t.Errorf("backend received %+v", got)
	}
}

func TestSubmitRejectedCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "deadline passed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	err := c.Submit(context.Background(), &model.SignedSubmission{Quiz: "exam-1"})

	if !errors.Is(err, ErrSubmitRejected) {
		t.Fatalf("error = %v, want ErrSubmitRejected", err)
	}
	if !strings.Contains(err.Error(), "deadline passed") {
		t.Errorf("error = %v, want backend message preserved", err)
	}
}

func TestHistoryQueryAndDecode(t *testing.T) {
	when := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("quiz") != "exam-1" || q.Get("email") != "a@x.org" || q.Get("history") != "1" || q.Get("limit") != "3" {
			t.Errorf("unexpected query: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []model.HistoryRecord{
				{Time: when, Total: 2, Answers: map[string]string{"q1": "42"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	records, err := c.History(context.Background(), "exam-1", "a@x.org", 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 1 || records[0].Total != 2 || records[0].Answers["q1"] != "42" {
		t.Errorf("records = %+v", records)
	}
	if !records[0].Time.Equal(when) {
		t.Errorf("time = %v, want %v", records[0].Time, when)
	}
}

func TestHistoryErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown quiz"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	if _, err := c.History(context.Background(), "ghost", "a@x.org", 3); err == nil {
		t.Error("History succeeded against an error envelope")
	}
}

func TestLogVisitFireAndForget(t *testing.T) {
	var mu sync.Mutex
	var visits []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/log" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		visits = append(visits, body)
		mu.Unlock()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	c.LogVisit(context.Background(), "exam-1", "a@x.org")

	mu.Lock()
	defer mu.Unlock()
	if len(visits) != 1 || visits[0]["quiz"] != "exam-1" || visits[0]["email"] != "a@x.org" {
		t.Errorf("visits = %+v", visits)
	}
}

func TestLogVisitSwallowsFailure(t *testing.T) {
	// Point at a closed server; LogVisit must not panic or error out.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	c.LogVisit(context.Background(), "exam-1", "a@x.org")
}
