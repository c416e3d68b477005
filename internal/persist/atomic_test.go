package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "record.json")
	want := record{Name: "group-a", Count: 3}

	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("unexpected error writing: %v", err)
	}

	var got record
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("unexpected error reading: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWriteJSONLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	if err := WriteJSON(path, record{Name: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error reading dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "record.json" {
		t.Errorf("expected exactly the destination file to remain, got %v", entries)
	}
}

func TestReadJSONMissingFileReturnsErrNotExist(t *testing.T) {
	var got record
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a wrapped os.ErrNotExist, got %v", err)
	}
}

func TestWriteJSONOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	if err := WriteJSON(path, record{Name: "first", Count: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteJSON(path, record{Name: "second", Count: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got record
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "second" || got.Count != 2 {
		t.Errorf("expected the second write to win, got %+v", got)
	}
}
