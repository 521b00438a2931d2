package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/airbusgeo/eo-pipeline/service"
)

// GSFetcher implements Fetcher for gs://bucket/object uris (Google Cloud Storage)
type GSFetcher struct {
	Anonymous     bool
	ClientOptions []option.ClientOption

	once   sync.Once
	client *storage.Client
	err    error
}

func (f *GSFetcher) init(ctx context.Context) error {
	f.once.Do(func() {
		opts := f.ClientOptions
		if f.Anonymous {
			opts = append(opts, option.WithoutAuthentication())
		}
		// The client must outlive ctx
		if f.client, f.err = storage.NewClient(context.WithoutCancel(ctx), opts...); f.err != nil {
			f.err = service.MakeFatal(fmt.Errorf("GSFetcher.NewClient: %w", f.err))
		}
	})
	return f.err
}

// Fetch implements Fetcher
func (f *GSFetcher) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	if err := f.init(ctx); err != nil {
		return 0, err
	}
	bucket, object, err := splitBucketURI(uri)
	if err != nil {
		return 0, fmt.Errorf("GSFetcher.%w", err)
	}

	r, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		err = fmt.Errorf("GSFetcher.NewReader[%s]: %w", uri, err)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return 0, service.MakeFatal(err)
		}
		if service.Temporary(err) {
			return 0, service.MakeTemporary(err)
		}
		return 0, err
	}
	defer r.Close()

	n, err := copyToFile(ctx, uri, r, r.Attrs.Size, dst)
	if err != nil {
		return n, fmt.Errorf("GSFetcher[%s].%w", uri, err)
	}
	return n, nil
}

// Close releases the client
func (f *GSFetcher) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
