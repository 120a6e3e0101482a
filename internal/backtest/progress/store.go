package progress

import (
	"context"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists one Record per (symbol, strategy). Save must be all or
// nothing: after a crash the previous record or the new one is readable,
// never a truncated mix.
type Store interface {
	Load(ctx context.Context, symbol string, strategy string) (optional.Option[Record], error)
	Save(ctx context.Context, record Record) error
	Delete(ctx context.Context, symbol string, strategy string) error
}

// FileStore keeps each record in <dir>/<symbol>_<strategy>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) path(symbol string, strategy string) string {
	return filepath.Join(f.dir, key(symbol, strategy)+".json")
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, symbol string, strategy string) (optional.Option[Record], error) {
	data, err := os.ReadFile(f.path(symbol, strategy))
	if err != nil {
		if os.IsNotExist(err) {
			return optional.None[Record](), nil
		}

		return optional.None[Record](), errors.Wrapf(errors.ErrCodeProgressLoadFailed, err, "failed to read progress for %s/%s", symbol, strategy)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return optional.None[Record](), errors.Wrapf(errors.ErrCodeProgressCorrupted, err, "corrupted progress for %s/%s", symbol, strategy)
	}

	return optional.Some(record), nil
}

// Save implements Store. The record is written to a temp file in the same
// directory, synced, and renamed over the old one.
func (f *FileStore) Save(_ context.Context, record Record) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to create progress directory", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to encode progress", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".progress-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to create temp file", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to write progress", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to sync progress", err)
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to close progress file", err)
	}

	if err := os.Rename(tmpName, f.path(record.Symbol, record.Strategy)); err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to replace progress file", err)
	}

	return syncDir(f.dir)
}

// Delete implements Store. Deleting a missing record is not an error.
func (f *FileStore) Delete(_ context.Context, symbol string, strategy string) error {
	err := os.Remove(f.path(symbol, strategy))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrCodeProgressWriteFailed, err, "failed to delete progress for %s/%s", symbol, strategy)
	}

	return nil
}

// syncDir flushes the rename itself to disk.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to open progress directory", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return errors.Wrap(errors.ErrCodeProgressWriteFailed, "failed to sync progress directory", err)
	}

	return nil
}
