package downloader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/eo-pipeline/common"
	"github.com/airbusgeo/eo-pipeline/interface/provider"
	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultConcurrency = 4
	DefaultTaskTimeout = 10 * time.Minute
	DefaultBackoff     = time.Second
	partSuffix         = ".part"
)

// Downloader downloads the assets of the items to StorageRoot
type Downloader struct {
	Fetcher      provider.Fetcher
	StorageRoot  string
	MaxAttempts  int           // per task (default: DefaultMaxAttempts)
	Concurrency  int           // number of parallel downloads (default: DefaultConcurrency)
	TaskTimeout  time.Duration // per attempt (default: DefaultTaskTimeout)
	Backoff      time.Duration // unit of the exponential backoff between two attempts (default: DefaultBackoff)
	SkipExisting bool          // do not download a file that already exists
}

// New returns a downloader with the default parameters
func New(fetcher provider.Fetcher, storageRoot string) *Downloader {
	return &Downloader{
		Fetcher:     fetcher,
		StorageRoot: storageRoot,
		MaxAttempts: DefaultMaxAttempts,
		Concurrency: DefaultConcurrency,
		TaskTimeout: DefaultTaskTimeout,
		Backoff:     DefaultBackoff,
	}
}

// Tasks returns one task per item and band, in the order of the items then of the bands.
// A band without asset (or with an empty href) does not produce any task.
func Tasks(items []common.Item, bands []string, storageRoot string) ([]common.DownloadTask, error) {
	var tasks []common.DownloadTask
	destinations := map[string]string{}
	for _, item := range items {
		for _, band := range bands {
			asset, ok := item.Assets[band]
			if !ok || asset.Href == "" {
				continue
			}
			task := common.DownloadTask{
				ItemID:      item.ID,
				Band:        band,
				Source:      asset.Href,
				Destination: common.AssetPath(storageRoot, item.ID, band, asset.Href),
			}
			key := item.ID + "/" + band
			if other, ok := destinations[task.Destination]; ok && other != key {
				return nil, fmt.Errorf("Tasks: %s and %s have the same destination: %s", other, key, task.Destination)
			}
			if _, ok := destinations[task.Destination]; ok {
				// same item listed twice
				continue
			}
			destinations[task.Destination] = key
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// EnsureRoot creates the storage root. It is idempotent and safe for concurrent use.
func (d *Downloader) EnsureRoot() error {
	if err := service.EnsureDir(d.StorageRoot); err != nil {
		return fmt.Errorf("EnsureRoot.%w", err)
	}
	return nil
}

func (d *Downloader) maxAttempts() int {
	if d.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return d.MaxAttempts
}

func (d *Downloader) backoff() time.Duration {
	if d.Backoff <= 0 {
		return DefaultBackoff
	}
	return d.Backoff
}

// Download downloads the asset of the task, retrying up to MaxAttempts times.
// It never returns an error: the failure is reported in the result.
func (d *Downloader) Download(ctx context.Context, task common.DownloadTask) common.DownloadResult {
	ctx = log.With(ctx, "item", task.ItemID, "band", task.Band)
	result := common.DownloadResult{DownloadTask: task}

	if d.SkipExisting {
		if info, err := os.Stat(task.Destination); err == nil && info.Mode().IsRegular() {
			log.Logger(ctx).Sugar().Debugf("%s already exists", task.Destination)
			result.Outcome = common.OutcomeSuccess
			result.BytesWritten = info.Size()
			return result
		}
	}

	err := service.Retriable(ctx, func() error {
		result.Attempts++
		n, err := d.attempt(ctx, task)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("attempt %d/%d: %v", result.Attempts, d.maxAttempts(), err)
			return err
		}
		result.BytesWritten = n
		return nil
	}, d.backoff(), d.maxAttempts())

	if err != nil {
		result.Outcome = common.OutcomeFailure
		result.ErrorKind = common.DownloadError
		result.Message = fmt.Sprintf("failed to download %s to %s: %v", task.Source, task.Destination, err)
		log.Logger(ctx).Sugar().Errorf("%s", result.Message)
		return result
	}
	result.Outcome = common.OutcomeSuccess
	log.Logger(ctx).Sugar().Infof("%s saved (%d bytes)", task.Destination, result.BytesWritten)
	return result
}

// attempt downloads the asset in a part file that is renamed on success and removed on failure
func (d *Downloader) attempt(ctx context.Context, task common.DownloadTask) (n int64, err error) {
	if d.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.TaskTimeout)
		defer cancel()
	}
	part := task.Destination + partSuffix
	os.Remove(part)
	defer func() {
		if err != nil {
			os.Remove(part)
		}
	}()

	if n, err = d.Fetcher.Fetch(ctx, task.Source, part); err != nil {
		return 0, fmt.Errorf("attempt.%w", err)
	}
	if err = os.Rename(part, task.Destination); err != nil {
		return 0, fmt.Errorf("attempt.Rename: %w", err)
	}
	return n, nil
}

// DownloadAll downloads all the tasks with a pool of Concurrency workers.
// The results are sorted by item then band. If ctx is canceled, the remaining tasks are reported as failures
// and ctx.Err() is returned.
func (d *Downloader) DownloadAll(ctx context.Context, tasks []common.DownloadTask) ([]common.DownloadResult, error) {
	if len(tasks) == 0 {
		return nil, ctx.Err()
	}
	if err := d.EnsureRoot(); err != nil {
		// every task would fail the same way
		results := make([]common.DownloadResult, len(tasks))
		for i, task := range tasks {
			results[i] = failure(task, err)
		}
		common.SortResults(results)
		return results, nil
	}

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	jobs := make(chan int)
	results := make([]common.DownloadResult, len(tasks))
	done := make([]bool, len(tasks))
	mu := sync.Mutex{}

	wg, gctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		wg.Go(func() error {
			for i := range jobs {
				r := d.Download(gctx, tasks[i])
				mu.Lock()
				results[i], done[i] = r, true
				mu.Unlock()
			}
			return nil
		})
	}
	wg.Go(func() error {
		defer close(jobs)
		for i := range tasks {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- i:
			}
		}
		return nil
	})
	wg.Wait()

	err := ctx.Err()
	for i, task := range tasks {
		if !done[i] {
			results[i] = failure(task, err)
		}
	}
	common.SortResults(results)
	return results, err
}

func failure(task common.DownloadTask, err error) common.DownloadResult {
	return common.DownloadResult{
		DownloadTask: task,
		Outcome:      common.OutcomeFailure,
		ErrorKind:    common.DownloadError,
		Message:      fmt.Sprintf("failed to download %s to %s: %v", task.Source, task.Destination, err),
	}
}
