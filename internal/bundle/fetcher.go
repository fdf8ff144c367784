package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/withObsrvr/prefix-bundler/internal/logging"
)

// Fetcher downloads objects into the local workspace. A local file that
// already exists with non-zero size is trusted and skipped, which is what
// makes interrupted runs resumable. The check and the later write are not
// atomic; callers must not run two fetches against the same workspace.
type Fetcher struct {
	store ObjectStore
	log   *slog.Logger
}

// NewFetcher creates a fetcher over the given store.
func NewFetcher(store ObjectStore) *Fetcher {
	return &Fetcher{
		store: store,
		log:   logging.Component("fetcher"),
	}
}

// Fetch transfers every ref into localRoot at its flattened path. The first
// failed transfer aborts the batch after removing its partial file; completed
// downloads are left in place. Results are ordered downloaded-first, then
// skipped in original listing order.
func (f *Fetcher) Fetch(ctx context.Context, refs []ObjectRef, localRoot string) ([]TransferResult, error) {
	var downloaded, skipped []TransferResult

	for _, ref := range refs {
		localPath := filepath.Join(localRoot, filepath.FromSlash(Flatten(ref.Key)))

		if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
			f.log.Info("file already exists locally, skipping download", "path", localPath)
			skipped = append(skipped, TransferResult{LocalPath: localPath, Outcome: Skipped})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", filepath.Dir(localPath), err)
		}

		if err := f.store.Download(ctx, ref.Key, localPath); err != nil {
			// Do not leave a partial file behind for a later run to trust.
			os.Remove(localPath)
			return nil, fmt.Errorf("download %s: %w", f.store.URI(ref.Key), err)
		}

		f.log.Info("downloaded", "object", f.store.URI(ref.Key), "path", localPath)
		downloaded = append(downloaded, TransferResult{LocalPath: localPath, Outcome: Downloaded})
	}

	return append(downloaded, skipped...), nil
}
