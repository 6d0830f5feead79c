package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"
)

func TestPrepareFillsGeneratedFields(t *testing.T) {
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.FixedZone("AEDT", 11*3600))
	entry := prepare(Entry{Action: ActionConfigUpdate, Metadata: json.RawMessage(`{"venueName":"The Anchor"}`)}, now)
	if !strings.HasPrefix(entry.ID, "audit-") {
		t.Fatalf("unexpected id: %s", entry.ID)
	}
	if entry.CreatedAt.Location() != time.UTC || !entry.CreatedAt.Equal(now) {
		t.Fatalf("expected utc created at, got %s", entry.CreatedAt)
	}
	if len(entry.PayloadDigest) != 64 {
		t.Fatalf("expected sha256 digest, got %q", entry.PayloadDigest)
	}
	if DigestJSON(nil) != "" {
		t.Fatalf("expected empty digest for empty payload")
	}

	kept := prepare(Entry{ID: "fixed", PayloadDigest: "abc"}, now)
	if kept.ID != "fixed" || kept.PayloadDigest != "abc" {
		t.Fatalf("expected caller fields kept: %+v", kept)
	}
}

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogLogger(log.New(&buf, "", 0))
	if err := logger.Log(context.Background(), Entry{Action: ActionConfigUpdate, LocationID: "loc-1", Actor: "user-1"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(buf.String(), "audit venue_config.update:") || !strings.Contains(buf.String(), "actor=user-1") {
		t.Fatalf("unexpected line: %s", buf.String())
	}
}

func TestNilRepository(t *testing.T) {
	if NewRepository(nil) != nil {
		t.Fatalf("expected nil repository for nil db")
	}
	var repo *Repository
	if err := repo.Log(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
