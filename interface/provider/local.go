package provider

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/airbusgeo/eo-pipeline/service"
)

// LocalFetcher implements Fetcher for file:// uris and local paths
type LocalFetcher struct{}

func localPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return uri
}

// Fetch implements Fetcher
func (f *LocalFetcher) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	src := localPath(uri)
	r, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, service.MakeFatal(service.ErrFileNotFound{File: src})
		}
		return 0, fmt.Errorf("LocalFetcher: %w", err)
	}
	defer r.Close()

	info, err := r.Stat()
	if err != nil {
		return 0, fmt.Errorf("LocalFetcher.Stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, service.MakeFatal(fmt.Errorf("LocalFetcher: not a regular file: %s", src))
	}
	n, err := copyToFile(ctx, src, r, info.Size(), dst)
	if err != nil {
		return n, fmt.Errorf("LocalFetcher.%w", err)
	}
	return n, nil
}
