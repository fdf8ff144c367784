package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "bundle.zip")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPublishUploadsWhenMissing(t *testing.T) {
	store := newMockStore("dst")
	artifact := writeArtifact(t, "archive bytes")

	decision, err := NewPublisher(store, false).Publish(context.Background(), artifact, "archives/bundle.zip")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if decision.Exists || !decision.Written {
		t.Errorf("decision = %+v, want exists=false written=true", decision)
	}
	if store.uploads != 1 {
		t.Errorf("uploads = %d, want 1", store.uploads)
	}
	if string(store.objects["archives/bundle.zip"]) != "archive bytes" {
		t.Error("uploaded content mismatch")
	}
}

func TestPublishSkipsExistingWithoutOverwrite(t *testing.T) {
	store := newMockStore("dst")
	store.put("archives/bundle.zip", []byte("old"))
	artifact := writeArtifact(t, "new")

	decision, err := NewPublisher(store, false).Publish(context.Background(), artifact, "archives/bundle.zip")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !decision.Exists || decision.Written {
		t.Errorf("decision = %+v, want exists=true written=false", decision)
	}
	if store.uploads != 0 {
		t.Errorf("uploads = %d, want 0", store.uploads)
	}
	if string(store.objects["archives/bundle.zip"]) != "old" {
		t.Error("existing object was overwritten")
	}
}

func TestPublishOverwritesWhenEnabled(t *testing.T) {
	store := newMockStore("dst")
	store.put("archives/bundle.zip", []byte("old"))
	artifact := writeArtifact(t, "new")

	decision, err := NewPublisher(store, true).Publish(context.Background(), artifact, "archives/bundle.zip")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !decision.Exists || !decision.Written {
		t.Errorf("decision = %+v, want exists=true written=true", decision)
	}
	if store.uploads != 1 {
		t.Errorf("uploads = %d, want 1", store.uploads)
	}
	if string(store.objects["archives/bundle.zip"]) != "new" {
		t.Error("object was not overwritten")
	}
}
