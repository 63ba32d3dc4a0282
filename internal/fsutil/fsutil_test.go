package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRuleFilesRecursesAndSorts(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "banana")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		filepath.Join(root, "zz.hcl"),
		filepath.Join(root, "aa.hcl"),
		filepath.Join(nested, "mm.hcl"),
		filepath.Join(root, "notes.txt"),
	} {
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := FindRuleFiles(root)
	if err != nil {
		t.Fatalf("FindRuleFiles: %v", err)
	}
	want := []string{
		filepath.Join(root, "aa.hcl"),
		filepath.Join(nested, "mm.hcl"),
		filepath.Join(root, "zz.hcl"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestFindRuleFilesMissingRoot(t *testing.T) {
	if _, err := FindRuleFiles(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
