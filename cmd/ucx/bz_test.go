package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBugIDs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bugs.txt")
	content := "# triage batch\n1900000\n\n1900001\n  1900002  \n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := resolveBugIDs(0, file)
	if err != nil {
		t.Fatalf("resolveBugIDs: %v", err)
	}
	want := []int64{1900000, 1900001, 1900002}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestResolveBugIDsSingle(t *testing.T) {
	ids, err := resolveBugIDs(1900123, "")
	if err != nil {
		t.Fatalf("resolveBugIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1900123 {
		t.Errorf("got %v, want [1900123]", ids)
	}
}

func TestResolveBugIDsValidation(t *testing.T) {
	if _, err := resolveBugIDs(0, ""); err == nil {
		t.Error("expected error when neither source is given")
	}
	if _, err := resolveBugIDs(1, "some-file"); err == nil {
		t.Error("expected error when both sources are given")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("not-a-number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveBugIDs(0, bad); err == nil {
		t.Error("expected error for a non-numeric id")
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("\n# only comments\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveBugIDs(0, empty); err == nil {
		t.Error("expected error for a file with no ids")
	}
}
