package hashtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neopilotai/memobuild/internal/ignore"
)

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	b, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if a != b {
		t.Errorf("hash not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashFileChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("a"), 0644)
	h1, _ := HashFile(path)
	os.WriteFile(path, []byte("b"), 0644)
	h2, _ := HashFile(path)
	if h1 == h2 {
		t.Error("expected hash to change with content")
	}
}

func TestHashDirMissingRootIsEmptyNotError(t *testing.T) {
	h, err := HashDir(filepath.Join(t.TempDir(), "does-not-exist"), ignore.Empty())
	if err != nil {
		t.Fatalf("expected no error for missing root, got %v", err)
	}
	if h != "" {
		t.Errorf("expected empty hash for missing root, got %q", h)
	}
}

func TestHashDirIndependentOfWalkOrder(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "z.txt"), []byte("z"), 0644)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "m.txt"), []byte("m"), 0644)

	h1, err := HashDir(dir, ignore.Empty())
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	h2, err := HashDir(dir, ignore.Empty())
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected stable hash across runs, got %s vs %s", h1, h2)
	}
}

func TestHashDirRespectsIgnoreRules(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("keep"), 0644)
	os.WriteFile(filepath.Join(dir, "skip.log"), []byte("skip"), 0644)

	withIgnored, err := HashDir(dir, ignore.Empty())
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}

	rules := ignore.New([]byte("*.log\n"))
	withoutIgnored, err := HashDir(dir, rules)
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}

	if withIgnored == withoutIgnored {
		t.Error("expected ignoring skip.log to change the directory hash")
	}

	os.Remove(filepath.Join(dir, "skip.log"))
	afterRemoval, err := HashDir(dir, ignore.Empty())
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	if afterRemoval != withoutIgnored {
		t.Error("expected ignoring a file to match the hash of that file's absence")
	}
}

func TestHashPathDispatchesFileVsDir(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "f.txt")
	os.WriteFile(filePath, []byte("content"), 0644)

	fileHash, err := HashPath(filePath, ignore.Empty())
	if err != nil {
		t.Fatalf("HashPath file: %v", err)
	}
	direct, _ := HashFile(filePath)
	if fileHash != direct {
		t.Error("HashPath on a regular file should match HashFile")
	}

	dirHash, err := HashPath(dir, ignore.Empty())
	if err != nil {
		t.Fatalf("HashPath dir: %v", err)
	}
	directDir, _ := HashDir(dir, ignore.Empty())
	if dirHash != directDir {
		t.Error("HashPath on a directory should match HashDir")
	}
}

func TestHashPathMissingIsEmptyNotError(t *testing.T) {
	h, err := HashPath(filepath.Join(t.TempDir(), "nope"), ignore.Empty())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if h != "" {
		t.Errorf("expected empty hash, got %q", h)
	}
}
