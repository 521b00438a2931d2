package provider

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/airbusgeo/eo-pipeline/service"
)

// Fetcher downloads a remote file
type Fetcher interface {
	// Fetch downloads the file at uri to the local file dst (created or truncated) and returns the number of bytes written.
	// The returned error is marked as service.Fatal when retrying cannot succeed (not found, forbidden...).
	Fetch(ctx context.Context, uri, dst string) (int64, error)
}

// ErrUnsupportedScheme is returned when no Fetcher handles the scheme of the uri
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("unsupported scheme: '%s'", e.Scheme)
}

// Schemes dispatches the fetch to the Fetcher registered for the scheme of the uri.
// An uri without scheme is handled by the "file" Fetcher.
type Schemes map[string]Fetcher

// Scheme returns the lower-case scheme of the uri ("file" if none)
func Scheme(uri string) string {
	u, err := url.Parse(uri)
	// a windows drive letter is not a scheme
	if err != nil || len(u.Scheme) <= 1 {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Fetch implements Fetcher
func (s Schemes) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	scheme := Scheme(uri)
	f, ok := s[scheme]
	if !ok {
		return 0, service.MakeFatal(ErrUnsupportedScheme{scheme})
	}
	return f.Fetch(ctx, uri, dst)
}

// Supported returns the sorted list of schemes
func (s Schemes) Supported() []string {
	schemes := make([]string, 0, len(s))
	for k := range s {
		schemes = append(schemes, k)
	}
	sort.Strings(schemes)
	return schemes
}

// Close closes the fetchers implementing io.Closer, once each
func (s Schemes) Close() error {
	closed := map[Fetcher]bool{}
	var merr *multierror.Error
	for _, scheme := range s.Supported() {
		f := s[scheme]
		c, ok := f.(io.Closer)
		if !ok || closed[f] {
			continue
		}
		closed[f] = true
		if err := c.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close %s: %w", scheme, err))
		}
	}
	return merr.ErrorOrNil()
}

// Options configures the fetchers created by NewSchemes
type Options struct {
	HTTPAuth    service.HTTPAuth // also sent to the redirection targets
	S3Region    string
	S3Endpoint  string // custom endpoint (path-style), for S3-compatible storages
	S3Anonymous bool   // public buckets
	S3Requester bool   // requester-pays buckets
	// Static credentials (otherwise, default credential chain)
	S3AccessKeyID     string
	S3SecretAccessKey string
	GSAnonymous       bool   // public buckets
	FTPUser           string // used if the uri has no userinfo
	FTPPassword       string
}

// NewSchemes creates the fetchers of all the supported schemes: http(s), s3, gs, ftp(s) and file.
// Remote clients are created on first use.
func NewSchemes(ctx context.Context, opts Options) Schemes {
	h := &HTTPFetcher{Client: service.NewHTTPClient(ctx, opts.HTTPAuth, 0)}
	ftp := &FTPFetcher{User: opts.FTPUser, Password: opts.FTPPassword}
	return Schemes{
		"http":  h,
		"https": h,
		"s3": &S3Fetcher{
			Region:          opts.S3Region,
			Endpoint:        opts.S3Endpoint,
			Anonymous:       opts.S3Anonymous,
			RequesterPays:   opts.S3Requester,
			AccessKeyID:     opts.S3AccessKeyID,
			SecretAccessKey: opts.S3SecretAccessKey,
		},
		"gs":    &GSFetcher{Anonymous: opts.GSAnonymous},
		"ftp":   ftp,
		"ftps":  ftp,
		"file":  &LocalFetcher{},
	}
}

// splitBucketURI returns the bucket and the key of a "scheme://bucket/key" uri
func splitBucketURI(uri string) (string, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", service.MakeFatal(fmt.Errorf("parse uri: %w", err))
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", service.MakeFatal(fmt.Errorf("malformed uri: %s (expecting %s://bucket/key)", uri, u.Scheme))
	}
	return u.Host, key, nil
}
