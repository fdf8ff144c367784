package bundle

import (
	"context"
	"time"

	"github.com/withObsrvr/prefix-bundler/internal/storage"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// ObjectStore is the object-storage capability the pipeline runs against.
// storage.Bucket implements it; tests substitute mocks.
type ObjectStore interface {
	Name() string
	URI(key string) string
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Head(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key, destPath string) error
	Upload(ctx context.Context, srcPath, key string) error
}

// ObjectRef identifies one remote object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Outcome records how a transfer was satisfied.
type Outcome int

const (
	Downloaded Outcome = iota
	Skipped
)

func (o Outcome) String() string {
	if o == Skipped {
		return "skipped"
	}
	return "downloaded"
}

// TransferResult is the per-object result of a fetch.
type TransferResult struct {
	LocalPath string
	Outcome   Outcome
}

// Archive describes the built (or reused) archive artifact.
type Archive struct {
	Path      string
	SizeBytes int64
	Reused    bool
}

// PublishDecision records the outcome of the existence-gated upload.
type PublishDecision struct {
	Key     string
	Exists  bool
	Written bool
}

// RunMetrics is the per-run accounting. It is logged once and never persisted.
type RunMetrics struct {
	FileCount        int
	TotalInputBytes  int64
	ArchiveBytes     int64
	ListDuration     time.Duration
	DownloadDuration time.Duration
	ArchiveDuration  time.Duration
	UploadDuration   time.Duration
}

// CompressionRatio returns archive size over input size, or 0 when the input
// size is unknown.
func (m RunMetrics) CompressionRatio() float64 {
	if m.TotalInputBytes <= 0 {
		return 0
	}
	return float64(m.ArchiveBytes) / float64(m.TotalInputBytes)
}
