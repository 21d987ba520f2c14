package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/pkg/types"
)

// ErrEmptyDataset is returned by sources that have nothing stored yet.
var ErrEmptyDataset = errors.New("no dataset available")

// Source produces a dataset on demand.
type Source interface {
	Load(ctx context.Context) (*types.Dataset, error)
}

// FileSource reads a data file from disk.
type FileSource struct {
	Path string
}

func (fs FileSource) Load(ctx context.Context) (*types.Dataset, error) {
	f, err := os.Open(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data file %s: %w", fs.Path, ErrEmptyDataset)
		}
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()
	return DecodeDataset(f)
}

// SnapshotStore is the subset of the database used as a dataset source.
type SnapshotStore interface {
	LoadLatestDataset(ctx context.Context, client string) (*types.Dataset, error)
}

// SnapshotSource loads the newest stored snapshot of a client.
type SnapshotSource struct {
	Store  SnapshotStore
	Client string
}

func (ss SnapshotSource) Load(ctx context.Context) (*types.Dataset, error) {
	return ss.Store.LoadLatestDataset(ctx, ss.Client)
}

// FallbackSource tries each source in order and returns the first success.
type FallbackSource []Source

func (fs FallbackSource) Load(ctx context.Context) (*types.Dataset, error) {
	var errs []error
	for _, s := range fs {
		ds, err := s.Load(ctx)
		if err == nil {
			return ds, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrEmptyDataset
	}
	return nil, errors.Join(errs...)
}

// DefaultPlatforms are the platform keys of an empty dataset.
var DefaultPlatforms = []string{"facebook", "instagram"}

// EmptyDataset is served when no data file can be read.
func EmptyDataset(platforms []string, now time.Time) *types.Dataset {
	ds := &types.Dataset{
		Generated: now.Format(time.RFC3339),
		Platforms: make([]types.PlatformData, 0, len(platforms)),
	}
	for _, key := range platforms {
		ds.Platforms = append(ds.Platforms, types.PlatformData{
			Key:       key,
			Worksheet: worksheetTitle(key),
			Records:   []types.RawPostRecord{},
		})
	}
	return ds
}

func worksheetTitle(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// Loader caches the dataset of one client. A failed load is served as an
// empty dataset and is not cached, so the next call retries.
type Loader struct {
	source Source
	logger *logrus.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache *types.Dataset
}

func NewLoader(source Source, logger *logrus.Logger) *Loader {
	return &Loader{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the cached dataset, reading the source on first use.
func (l *Loader) Load(ctx context.Context) *types.Dataset {
	l.mu.RLock()
	cached := l.cache
	l.mu.RUnlock()
	if cached != nil {
		return cached
	}

	ds, err := l.source.Load(ctx)
	if err != nil {
		l.logger.Warnf("Failed to load dataset, serving empty report: %v", err)
		return EmptyDataset(DefaultPlatforms, l.now())
	}

	l.mu.Lock()
	l.cache = ds
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"generated": ds.Generated,
		"platforms": len(ds.Platforms),
		"records":   ds.RecordCount(),
	}).Info("Dataset loaded")
	return ds
}

// ClearCache forces the next Load to read the source again.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = nil
	l.mu.Unlock()
}

// LastUpdate is the generated stamp of the cached dataset, or "" when nothing
// is cached.
func (l *Loader) LastUpdate() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cache == nil {
		return ""
	}
	return l.cache.Generated
}

// WriteFiles stores ds as <dir>/<slug>.json plus one <dir>/<slug>_<platform>.json
// per platform and returns the written paths.
func WriteFiles(dir, slug string, ds *types.Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	var written []string
	for _, pd := range ds.Platforms {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", slug, pd.Key))
		if err := writeFile(path, func(f *os.File) error {
			return EncodePlatform(f, ds.Generated, pd)
		}); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, slug+".json")
	if err := writeFile(path, func(f *os.File) error {
		return EncodeDataset(f, ds)
	}); err != nil {
		return written, err
	}
	return append(written, path), nil
}

// writeFile writes through a temp file so readers never see a partial file.
func writeFile(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
