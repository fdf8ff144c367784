package bundle

import (
	"context"
	"testing"
)

func TestListFolderPrefix(t *testing.T) {
	store := newMockStore("src")
	store.put("data/2024/", nil) // folder marker
	store.put("data/2024/jan/a.csv", []byte("aaa"))
	store.put("data/2024/feb/b.csv", []byte("bbb"))
	store.put("other/c.csv", []byte("ccc"))

	refs, err := NewLister(store).List(context.Background(), "data/2024/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"data/2024/jan/a.csv", "data/2024/feb/b.csv"}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d", len(refs), len(want))
	}
	for i, ref := range refs {
		if ref.Key != want[i] {
			t.Errorf("refs[%d].Key = %q, want %q", i, ref.Key, want[i])
		}
		if ref.Bucket != "src" {
			t.Errorf("refs[%d].Bucket = %q, want src", i, ref.Bucket)
		}
	}
}

func TestListSingleObject(t *testing.T) {
	store := newMockStore("src")
	store.put("data/file.csv", []byte("data"))

	refs, err := NewLister(store).List(context.Background(), "data/file.csv")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(refs) != 1 || refs[0].Key != "data/file.csv" {
		t.Fatalf("got %v, want single ref for data/file.csv", refs)
	}
}

func TestListSingleObjectMissing(t *testing.T) {
	store := newMockStore("src")

	refs, err := NewLister(store).List(context.Background(), "data/missing.csv")
	if err != nil {
		t.Fatalf("missing single object should not be an error, got: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("got %d refs, want 0", len(refs))
	}
}

func TestListEmptyFolder(t *testing.T) {
	store := newMockStore("src")

	refs, err := NewLister(store).List(context.Background(), "empty/")
	if err != nil {
		t.Fatalf("empty folder should not be an error, got: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("got %d refs, want 0", len(refs))
	}
}
