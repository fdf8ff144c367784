package bundle

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/withObsrvr/prefix-bundler/internal/logging"
)

// Archiver builds one deflate-compressed zip from the workspace. A valid
// archive already on disk is reused as-is, so an interrupted run that got as
// far as archiving does not recompress anything.
type Archiver struct {
	level int // deflate level, 1-9
	log   *slog.Logger
}

// NewArchiver creates an archiver with the given deflate level.
func NewArchiver(level int) *Archiver {
	return &Archiver{
		level: level,
		log:   logging.Component("archiver"),
	}
}

// Build creates localRoot/name from every regular file under localRoot except
// the archive itself. Entry names use the same flattening rule as local paths,
// so the archive layout mirrors the workspace exactly. Existence alone is
// never trusted: a pre-existing archive is verified entry by entry and
// rebuilt if corrupt.
func (a *Archiver) Build(localRoot, name string) (*Archive, error) {
	target := filepath.Join(localRoot, name)

	if info, err := os.Stat(target); err == nil {
		if verr := verify(target); verr == nil {
			a.log.Info("valid archive already exists", "path", target, "bytes", info.Size())
			return &Archive{Path: target, SizeBytes: info.Size(), Reused: true}, nil
		}
		a.log.Warn("existing archive is corrupt, rebuilding", "path", target)
		if err := os.Remove(target); err != nil {
			return nil, fmt.Errorf("remove corrupt archive %s: %w", target, err)
		}
	}

	a.log.Info("creating archive", "path", target, "compression_level", a.level)

	if err := a.write(localRoot, target, name); err != nil {
		// An incomplete archive must not survive to be reused later.
		os.Remove(target)
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat archive %s: %w", target, err)
	}

	a.log.Info("created archive", "path", target, "bytes", info.Size())
	return &Archive{Path: target, SizeBytes: info.Size()}, nil
}

func (a *Archiver) write(localRoot, target, name string) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", target, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, a.level)
	})

	err = filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if p == target {
			return nil
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		entryName := Flatten(filepath.ToSlash(rel))

		w, err := zw.Create(entryName)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", entryName, err)
		}

		src, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		defer src.Close()

		if _, err := io.Copy(w, src); err != nil {
			return fmt.Errorf("write entry %s: %w", entryName, err)
		}

		a.log.Debug("added to archive", "entry", entryName)
		return nil
	})
	if err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", target, err)
	}
	return nil
}

// verify opens the archive and reads every entry to the end, which checks
// each entry's CRC against its header.
func verify(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", entry.Name, err)
		}
		if _, err := io.Copy(io.Discard, rc); err != nil {
			rc.Close()
			return fmt.Errorf("read entry %s: %w", entry.Name, err)
		}
		if err := rc.Close(); err != nil {
			return fmt.Errorf("close entry %s: %w", entry.Name, err)
		}
	}
	return nil
}
