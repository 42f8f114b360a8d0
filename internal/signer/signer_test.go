package signer

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/examforge/sessiond/internal/model"
)

func sampleSubmission() *model.SignedSubmission {
	return &model.SignedSubmission{
		Answers:   map[string]string{"q1": "42", "q2": "even"},
		Scores:    map[string]float64{"q1": 1, "q2": 2},
		Total:     3,
		Max:       3,
		Quiz:      "exam-1",
		Deadline:  time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Email:     "a@x.org",
		ExamToken: "tok-123",
	}
}

func TestDigestDeterministic(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := s.Digest(sampleSubmission())
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	second, err := s.Digest(sampleSubmission())
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	if first != second {
		t.Errorf("digests differ for identical submissions: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(first))
	}
}

func TestDigestIgnoresSealFields(t *testing.T) {
	s, _ := New()

	plain := sampleSubmission()
	base, _ := s.Digest(plain)

	sealed := sampleSubmission()
	sealed.Hash = "deadbeef"
	sealed.Signature = "c2lnbmVk"
	got, _ := s.Digest(sealed)

	if got != base {
		t.Error("digest changes when Hash/Signature are already set")
	}
}

func TestDigestChangesWithPayload(t *testing.T) {
	s, _ := New()

	base, _ := s.Digest(sampleSubmission())

	changed := sampleSubmission()
	changed.Answers["q1"] = "43"
	got, _ := s.Digest(changed)

	if got == base {
		t.Error("digest unchanged after payload edit")
	}
}

func TestSignFillsSeal(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sub := sampleSubmission()
	if err := s.Sign(sub); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	wantDigest, _ := s.Digest(sub)
	if sub.Hash != wantDigest {
		t.Errorf("Hash = %s, want payload digest %s", sub.Hash, wantDigest)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sub.Signature)
	if err != nil {
		t.Fatalf("Signature is not valid base64: %v", err)
	}
	if len(ciphertext) != s.CiphertextLen() {
		t.Errorf("ciphertext length = %d, want key size %d", len(ciphertext), s.CiphertextLen())
	}
}

func TestSignCiphertextRandomized(t *testing.T) {
	s, _ := New()

	a := sampleSubmission()
	b := sampleSubmission()
	s.Sign(a)
	s.Sign(b)

	// OAEP is randomized: same payload, same digest, different seal bytes.
	if a.Hash != b.Hash {
		t.Error("hashes differ for identical payloads")
	}
	if a.Signature == b.Signature {
		t.Error("OAEP produced identical ciphertexts")
	}
}

func TestNewWithKeyRejectsGarbage(t *testing.T) {
	if _, err := NewWithKey([]byte("not a pem block")); err == nil {
		t.Error("NewWithKey accepted garbage input")
	}
}
