package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cavaliercoder/grab"

	"github.com/airbusgeo/eo-pipeline/service"
)

// HTTPFetcher implements Fetcher for http and https uris.
// The credentials of the Client are set by its transport (see service.NewHTTPClient), redirections included.
type HTTPFetcher struct {
	Client *http.Client // optional
}

// Fetch implements Fetcher, displaying the progress every 5%
func (f *HTTPFetcher) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	req, err := grab.NewRequest(dst, uri)
	if err != nil {
		return 0, service.MakeFatal(fmt.Errorf("HTTPFetcher.NewRequest: %w", err))
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	client := grab.NewClient()
	if f.Client != nil {
		c := *f.Client
		client.HTTPClient = &c
	}
	resp := client.Do(req)

	displayProgress(ctx, uri, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("HTTPFetcher[%s]: %w", uri, err)
		if resp.HTTPResponse == nil {
			return 0, service.MakeTemporary(err)
		}
		switch code := resp.HTTPResponse.StatusCode; {
		case code == http.StatusNotFound || code == http.StatusGone:
			return 0, service.MakeFatal(fmt.Errorf("%w: %v", service.ErrFileNotFound{File: uri}, err))
		case service.TemporaryStatusCode(code):
			return 0, service.MakeTemporary(err)
		case code >= 400:
			return 0, service.MakeFatal(err)
		default:
			return 0, service.MakeTemporary(err)
		}
	}
	return resp.BytesComplete(), nil
}
