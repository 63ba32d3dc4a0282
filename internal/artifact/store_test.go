package artifact

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stores returns one instance of every driver, each rooted in fresh state.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
	}
}

func TestPutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := "dictionaries/BANANANATION/1.0.0/schema.json"

			info, err := store.Put(ctx, key, strings.NewReader("v1"), "application/json")
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if info.Size != 2 || info.Key != key {
				t.Errorf("info = %+v", info)
			}

			// Regeneration overwrites content under the same key.
			if _, err := store.Put(ctx, key, strings.NewReader("v2-longer"), "application/json"); err != nil {
				t.Fatalf("overwrite Put: %v", err)
			}
			data, err := ReadAll(ctx, store, key)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(data) != "v2-longer" {
				t.Errorf("content = %q, want overwritten value", data)
			}

			head, err := store.Head(ctx, key)
			if err != nil {
				t.Fatalf("Head: %v", err)
			}
			if head.Size != int64(len("v2-longer")) || head.ContentType != "application/json" {
				t.Errorf("head = %+v", head)
			}
		})
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := store.Get(ctx, "dictionaries/none/1/schema.json"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing = %v, want ErrNotFound", err)
			}
			if _, err := store.Head(ctx, "dictionaries/none/1/schema.json"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Head missing = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{
				"dictionaries/A/1/schema.json",
				"dictionaries/A/1/declaration.txt",
				"dictionaries/B/2/schema.json",
			}
			for _, key := range keys {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), "text/plain"); err != nil {
					t.Fatalf("Put %s: %v", key, err)
				}
			}

			infos, err := store.List(ctx, "dictionaries/A/")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(infos) != 2 {
				t.Fatalf("List returned %d entries: %+v", len(infos), infos)
			}
			// Ordered by key ascending.
			if infos[0].Key != "dictionaries/A/1/declaration.txt" || infos[1].Key != "dictionaries/A/1/schema.json" {
				t.Errorf("order = [%s, %s]", infos[0].Key, infos[1].Key)
			}
		})
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "/abs", "../escape", "a/../../b"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), ""); err == nil {
					t.Errorf("Put(%q) succeeded, want error", key)
				}
			}
		})
	}
}
