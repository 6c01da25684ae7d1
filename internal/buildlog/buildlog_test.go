package buildlog

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func fixedNow() int64 { return 1700000000 }

func TestAppendWritesNDJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.ndjson")
	l, err := Open(path, fixedNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if err := l.Append(2, EventHit, "served from local cache"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	l.Close()

	f, _ := os.Open(path)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 NDJSON line, got %d", count)
	}
}

func TestRecentReturnsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.ndjson")
	l, _ := Open(path, fixedNow)
	defer l.Close()

	l.Append(0, EventMiss, "")
	l.Append(0, EventMaterialize, "")
	l.Append(1, EventHit, "")

	recent := l.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Kind != EventMiss || recent[1].Kind != EventMaterialize || recent[2].Kind != EventHit {
		t.Errorf("unexpected order: %v", recent)
	}
}

func TestAppendAcrossReopenIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.ndjson")
	l1, _ := Open(path, fixedNow)
	l1.Append(0, EventHit, "first")
	l1.Close()

	l2, err := Open(path, fixedNow)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	l2.Append(1, EventMiss, "second")

	f, _ := os.Open(path)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 durable lines across reopen, got %d", count)
	}
}
