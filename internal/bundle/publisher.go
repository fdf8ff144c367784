package bundle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/withObsrvr/prefix-bundler/internal/logging"
)

// Publisher uploads the archive behind an existence check so re-runs do not
// overwrite a published artifact unless explicitly told to.
type Publisher struct {
	store     ObjectStore
	overwrite bool
	log       *slog.Logger
}

// NewPublisher creates a publisher writing to the given store.
func NewPublisher(store ObjectStore, overwrite bool) *Publisher {
	return &Publisher{
		store:     store,
		overwrite: overwrite,
		log:       logging.Component("publisher"),
	}
}

// Publish uploads artifactPath to destKey. When the destination already
// exists and overwrite is disabled, nothing is uploaded and the run still
// succeeds.
func (p *Publisher) Publish(ctx context.Context, artifactPath, destKey string) (*PublishDecision, error) {
	exists, err := p.store.Exists(ctx, destKey)
	if err != nil {
		return nil, err
	}

	switch {
	case exists && !p.overwrite:
		p.log.Info("destination exists and overwrite is disabled, skipping upload",
			"destination", p.store.URI(destKey))
		return &PublishDecision{Key: destKey, Exists: true, Written: false}, nil
	case exists:
		p.log.Info("destination exists, overwriting", "destination", p.store.URI(destKey))
	default:
		p.log.Info("uploading archive", "destination", p.store.URI(destKey))
	}

	if err := p.store.Upload(ctx, artifactPath, destKey); err != nil {
		return nil, fmt.Errorf("publish %s: %w", artifactPath, err)
	}

	p.log.Info("uploaded archive", "destination", p.store.URI(destKey))
	return &PublishDecision{Key: destKey, Exists: exists, Written: true}, nil
}
