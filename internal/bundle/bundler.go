package bundle

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/withObsrvr/prefix-bundler/internal/config"
	"github.com/withObsrvr/prefix-bundler/internal/logging"
	"github.com/withObsrvr/prefix-bundler/internal/metrics"
)

// Bundler sequences the pipeline: list the configured prefixes, fetch the
// objects into a local workspace, assemble one archive, publish it, clean up.
// Every stage is idempotent, so an interrupted run converges on re-run without
// redundant transfer. Runs against a given workspace must be serialized by
// the caller; there is no cross-process locking.
type Bundler struct {
	cfg *config.Config
	src ObjectStore
	dst ObjectStore
	m   *metrics.Metrics // nil when metrics are disabled
	log *slog.Logger
}

// New creates a bundler. m may be nil.
func New(cfg *config.Config, src, dst ObjectStore, m *metrics.Metrics) *Bundler {
	return &Bundler{
		cfg: cfg,
		src: src,
		dst: dst,
		m:   m,
		log: logging.Component("bundler"),
	}
}

// Run executes one pipeline pass. In dry-run mode it lists and reports only,
// with no filesystem or remote mutation. An empty listing across all prefixes
// is a successful no-op, not an error.
func (b *Bundler) Run(ctx context.Context, dryRun bool) error {
	err := b.run(ctx, dryRun)
	if b.m != nil {
		b.m.RunsTotal.Inc()
		if err != nil {
			b.m.RunsFailed.Inc()
		}
	}
	return err
}

func (b *Bundler) run(ctx context.Context, dryRun bool) error {
	var rm RunMetrics

	listStart := time.Now()
	refs, err := b.listAll(ctx)
	if err != nil {
		return err
	}
	rm.ListDuration = time.Since(listStart)
	b.observe(metrics.StageList, rm.ListDuration)

	if len(refs) == 0 {
		b.log.Error("no objects found in any configured prefix")
		return nil
	}
	rm.FileCount = len(refs)
	b.log.Info("found objects to process", "count", len(refs))

	rm.TotalInputBytes = b.probeSizes(ctx, refs)
	if b.m != nil {
		b.m.InputBytes.Add(float64(rm.TotalInputBytes))
	}

	destKey := path.Join(b.cfg.Bundle.DestinationPrefix, b.cfg.Bundle.OutputName)

	if dryRun {
		b.report(refs, destKey, rm.TotalInputBytes)
		return nil
	}

	localRoot, err := filepath.Abs(b.cfg.Bundle.LocalDir)
	if err != nil {
		return fmt.Errorf("resolve local directory %s: %w", b.cfg.Bundle.LocalDir, err)
	}
	if err := os.MkdirAll(localRoot, 0755); err != nil {
		return fmt.Errorf("create local directory %s: %w", localRoot, err)
	}

	downloadStart := time.Now()
	results, err := NewFetcher(b.src).Fetch(ctx, refs, localRoot)
	if err != nil {
		return err
	}
	rm.DownloadDuration = time.Since(downloadStart)
	b.observe(metrics.StageDownload, rm.DownloadDuration)

	downloadedCount := 0
	for _, r := range results {
		if r.Outcome == Downloaded {
			downloadedCount++
		}
	}
	if b.m != nil {
		b.m.ObjectsDownloaded.Add(float64(downloadedCount))
		b.m.ObjectsSkipped.Add(float64(len(results) - downloadedCount))
	}

	archiveStart := time.Now()
	archive, err := NewArchiver(b.cfg.Options.CompressionLevel).Build(localRoot, b.cfg.Bundle.OutputName)
	if err != nil {
		return err
	}
	rm.ArchiveDuration = time.Since(archiveStart)
	rm.ArchiveBytes = archive.SizeBytes
	b.observe(metrics.StageArchive, rm.ArchiveDuration)
	if b.m != nil {
		b.m.ArchiveBytes.Set(float64(archive.SizeBytes))
	}

	uploadStart := time.Now()
	decision, err := NewPublisher(b.dst, b.cfg.Options.OverwriteRemote).Publish(ctx, archive.Path, destKey)
	if err != nil {
		return err
	}
	rm.UploadDuration = time.Since(uploadStart)
	b.observe(metrics.StageUpload, rm.UploadDuration)

	if b.cfg.DeleteLocal() {
		b.cleanup(localRoot, results, archive.Path)
	}

	b.log.Info("run complete",
		"files", rm.FileCount,
		"downloaded", downloadedCount,
		"skipped", len(results)-downloadedCount,
		"input_bytes", rm.TotalInputBytes,
		"archive_bytes", rm.ArchiveBytes,
		"compression_ratio", fmt.Sprintf("%.3f", rm.CompressionRatio()),
		"archive_reused", archive.Reused,
		"uploaded", decision.Written,
		"list_duration", rm.ListDuration.String(),
		"download_duration", rm.DownloadDuration.String(),
		"archive_duration", rm.ArchiveDuration.String(),
		"upload_duration", rm.UploadDuration.String(),
	)
	return nil
}

// listAll resolves every configured prefix in order and concatenates the
// results. Duplicates across prefixes are kept.
func (b *Bundler) listAll(ctx context.Context) ([]ObjectRef, error) {
	lister := NewLister(b.src)

	var refs []ObjectRef
	for _, prefix := range b.cfg.Bundle.SourcePrefixes {
		found, err := lister.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list prefix %s: %w", prefix, err)
		}
		refs = append(refs, found...)
	}
	return refs, nil
}

// probeSizes sums listed object sizes for reporting. Probe failures are
// logged and the total stays partial; metrics must never abort a run.
func (b *Bundler) probeSizes(ctx context.Context, refs []ObjectRef) int64 {
	var total int64
	for _, ref := range refs {
		size, err := b.src.Head(ctx, ref.Key)
		if err != nil {
			b.log.Warn("size probe failed", "object", b.src.URI(ref.Key), "error", err)
			continue
		}
		total += size
	}
	return total
}

// report emits the dry-run preview.
func (b *Bundler) report(refs []ObjectRef, destKey string, totalBytes int64) {
	b.log.Info("dry run, no files will be downloaded or uploaded")
	for _, ref := range refs {
		b.log.Info("would download", "object", b.src.URI(ref.Key))
	}
	b.log.Info("would create archive",
		"name", b.cfg.Bundle.OutputName,
		"compression_level", b.cfg.Options.CompressionLevel,
		"input_bytes", totalBytes,
	)
	b.log.Info("would upload archive", "destination", b.dst.URI(destKey))
}

// cleanup removes downloaded files and the archive, then prunes empty
// directories bottom-up and finally the workspace root. Files that were
// skipped (present before this run) are left alone. Best effort throughout;
// a directory that still has content simply stays.
func (b *Bundler) cleanup(localRoot string, results []TransferResult, archivePath string) {
	b.log.Info("cleaning up local files", "dir", localRoot)

	for _, r := range results {
		if r.Outcome != Downloaded {
			continue
		}
		if err := os.Remove(r.LocalPath); err != nil && !os.IsNotExist(err) {
			b.log.Warn("failed to remove file", "path", r.LocalPath, "error", err)
		}
	}
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		b.log.Warn("failed to remove archive", "path", archivePath, "error", err)
	}

	var dirs []string
	filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != localRoot {
			dirs = append(dirs, p)
		}
		return nil
	})
	// Deepest first so emptied parents can go too.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		os.Remove(dir)
	}
	os.Remove(localRoot)
}

func (b *Bundler) observe(stage string, d time.Duration) {
	if b.m != nil {
		b.m.ObserveStage(stage, d)
	}
}
