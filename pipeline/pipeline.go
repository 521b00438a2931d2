// Package pipeline chains the acquisition of a query:
// validation, catalog search, metadata persistence and asset download.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airbusgeo/eo-pipeline/catalog"
	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/downloader"
	"github.com/airbusgeo/eo-pipeline/interface/catalog/stac"
	"github.com/airbusgeo/eo-pipeline/interface/provider"
	"github.com/airbusgeo/eo-pipeline/metadata"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

// ManifestFile is written in the catalog root at the end of each run
const ManifestFile = metadata.ManifestFile

// Config of a pipeline. Start from DefaultConfig: MaxCloudCover is used as is, 0 included.
type Config struct {
	CatalogURL        string
	CatalogAuth       service.HTTPAuth
	CatalogRPS        float64 // max search requests per second (0: unlimited)
	CatalogIntersects bool    // search with an "intersects" polygon instead of a bbox
	Collection        string
	MaxCloudCover     float64

	StorageRoot string // assets
	CatalogRoot string // metadata

	MaxAttempts  int
	Concurrency  int
	TaskTimeout  time.Duration
	SkipExisting bool
	Providers    provider.Options
}

// DefaultConfig returns a configuration targeting earth-search with the default policy
func DefaultConfig() Config {
	return Config{
		CatalogURL:    stac.EarthSearchURL,
		Collection:    catalog.DefaultCollection,
		MaxCloudCover: catalog.DefaultMaxCloudCover,
		StorageRoot:   "data",
		CatalogRoot:   "catalog",
		MaxAttempts:   downloader.DefaultMaxAttempts,
		Concurrency:   downloader.DefaultConcurrency,
		TaskTimeout:   downloader.DefaultTaskTimeout,
	}
}

// StageError is returned when a run fails before the download stage completes
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind returns the kind of the underlying error
func (e *StageError) Kind() common.ErrorKind {
	var verr *catalog.ValidationError
	var cerr *catalog.CatalogError
	var serr *metadata.StoreError
	switch {
	case errors.As(e.Err, &verr):
		return verr.Kind
	case errors.As(e.Err, &cerr):
		return cerr.Kind
	case errors.As(e.Err, &serr):
		return serr.Kind()
	case e.Stage == StageDownloading:
		return common.DownloadError
	}
	return common.NoError
}

// Pipeline runs queries
type Pipeline struct {
	Catalog    *catalog.Catalog
	Store      *metadata.Store
	Downloader *downloader.Downloader
	// OnStage is called on each transition (optional)
	OnStage func(ctx context.Context, stage Stage)

	runMu sync.Mutex
}

// New creates a pipeline from the configuration
func New(ctx context.Context, cfg Config) *Pipeline {
	stacProvider := stac.NewProvider(cfg.CatalogURL, service.NewHTTPClient(ctx, cfg.CatalogAuth, 0), cfg.CatalogRPS)
	stacProvider.Intersects = cfg.CatalogIntersects
	c := catalog.New(stacProvider)
	if cfg.Collection != "" {
		c.Collection = cfg.Collection
	}
	c.MaxCloudCover = cfg.MaxCloudCover

	schemes := provider.NewSchemes(ctx, cfg.Providers)
	log.Logger(ctx).Sugar().Debugf("asset schemes: %v", schemes.Supported())
	d := downloader.New(schemes, cfg.StorageRoot)
	if cfg.MaxAttempts > 0 {
		d.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Concurrency > 0 {
		d.Concurrency = cfg.Concurrency
	}
	if cfg.TaskTimeout > 0 {
		d.TaskTimeout = cfg.TaskTimeout
	}
	d.SkipExisting = cfg.SkipExisting

	return &Pipeline{
		Catalog:    c,
		Store:      &metadata.Store{Root: cfg.CatalogRoot},
		Downloader: d,
	}
}

// Close releases the clients of the fetchers
func (p *Pipeline) Close() error {
	if c, ok := p.Downloader.Fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Pipeline) setStage(ctx context.Context, stage Stage) {
	log.Logger(ctx).Sugar().Debugf("stage %s", stage)
	if p.OnStage != nil {
		p.OnStage(ctx, stage)
	}
}

func (p *Pipeline) fail(ctx context.Context, m common.Manifest, stage Stage, err error) (common.Manifest, error) {
	serr := &StageError{Stage: stage, Err: err}
	log.Logger(ctx).Sugar().Errorf("run failed: %v", serr)
	m.FinishedAt = time.Now().UTC()
	p.setStage(ctx, StageFailed)
	return m, serr
}

// ManifestPath returns the path of the manifest of the last run
func (p *Pipeline) ManifestPath() string {
	return filepath.Join(p.Store.Root, ManifestFile)
}

// Run executes the query. It returns a *StageError if the query is invalid, if the catalog cannot be searched
// or if the metadata cannot be saved. Otherwise, it returns the manifest of the run, with the result of
// each download. If ctx is canceled during the downloads, the manifest is returned with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, q common.Query) (common.Manifest, error) {
	m := common.Manifest{
		RunID:       uuid.New().String(),
		Query:       q,
		Items:       []string{},
		CatalogPath: p.Store.CatalogPath(),
		Results:     []common.DownloadResult{},
		StartedAt:   time.Now().UTC(),
	}
	ctx = log.With(ctx, "run", m.RunID)

	p.setStage(ctx, StageValidating)
	if err := catalog.ValidateQuery(q); err != nil {
		return p.fail(ctx, m, StageValidating, err)
	}

	p.setStage(ctx, StageSearching)
	items, err := p.Catalog.Search(ctx, q)
	if err != nil {
		return p.fail(ctx, m, StageSearching, err)
	}
	found := len(items)
	items = catalog.FilterByBands(items, q.Bands)
	log.Logger(ctx).Sugar().Infof("%d/%d items provide the bands %v", len(items), found, q.Bands)
	for _, item := range items {
		m.Items = append(m.Items, item.ID)
	}

	p.setStage(ctx, StagePersistingMetadata)
	if err := p.Store.Persist(ctx, items); err != nil {
		return p.fail(ctx, m, StagePersistingMetadata, err)
	}

	p.setStage(ctx, StageDownloading)
	tasks, err := downloader.Tasks(items, q.Bands, p.Downloader.StorageRoot)
	if err != nil {
		return p.fail(ctx, m, StageDownloading, err)
	}
	results, err := p.Downloader.DownloadAll(ctx, tasks)
	if results != nil {
		m.Results = results
	}
	m.FinishedAt = time.Now().UTC()

	if werr := service.WriteJSON(m, p.ManifestPath()); werr != nil {
		log.Logger(ctx).Sugar().Warnf("unable to write the manifest: %v", werr)
	}
	log.Logger(ctx).Sugar().Infof("%d files saved, %d failures", len(m.SavedFiles()), len(m.Failures()))
	p.setStage(ctx, StageDone)
	return m, err
}
