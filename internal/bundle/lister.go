package bundle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/withObsrvr/prefix-bundler/internal/logging"
	"github.com/withObsrvr/prefix-bundler/internal/storage"
)

// Lister resolves configured prefixes to object references.
type Lister struct {
	store ObjectStore
	log   *slog.Logger
}

// NewLister creates a lister over the given store.
func NewLister(store ObjectStore) *Lister {
	return &Lister{
		store: store,
		log:   logging.Component("lister"),
	}
}

// List resolves one prefix. A prefix ending in "/" is listed recursively,
// skipping the folder-marker object whose key equals the prefix. A prefix
// without a trailing "/" names a single object; a missing object is a warning
// and yields zero refs, any other probe failure is fatal.
func (l *Lister) List(ctx context.Context, prefix string) ([]ObjectRef, error) {
	if !strings.HasSuffix(prefix, "/") {
		_, err := l.store.Head(ctx, prefix)
		if errors.Is(err, storage.ErrNotFound) {
			l.log.Warn("object not found", "object", l.store.URI(prefix))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []ObjectRef{{Bucket: l.store.Name(), Key: prefix}}, nil
	}

	objects, err := l.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var refs []ObjectRef
	for _, obj := range objects {
		if obj.Key == prefix {
			continue
		}
		refs = append(refs, ObjectRef{Bucket: l.store.Name(), Key: obj.Key})
	}

	if len(refs) == 0 {
		l.log.Warn("no objects found for prefix", "prefix", l.store.URI(prefix))
	}
	return refs, nil
}
