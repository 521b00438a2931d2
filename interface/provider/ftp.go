package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/airbusgeo/eo-pipeline/service"
)

// FTPFetcher implements Fetcher for ftp://[user:pword@]host[:port]/path uris.
// ftps:// or port 990 uses implicit TLS.
type FTPFetcher struct {
	User     string // default user if the uri has none
	Password string
	Timeout  time.Duration
}

type ftpLocation struct {
	host, path  string
	user, pword string
	tls         bool
}

func (f *FTPFetcher) parse(uri string) (ftpLocation, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return ftpLocation{}, service.MakeFatal(fmt.Errorf("parse uri: %w", err))
	}
	if u.Host == "" || u.Path == "" {
		return ftpLocation{}, service.MakeFatal(fmt.Errorf("malformed uri: %s", uri))
	}
	loc := ftpLocation{
		host:  u.Host,
		path:  u.Path,
		user:  f.User,
		pword: f.Password,
		tls:   strings.EqualFold(u.Scheme, "ftps") || u.Port() == "990",
	}
	if u.Port() == "" {
		loc.host += ":21"
		if loc.tls {
			loc.host = u.Hostname() + ":990"
		}
	}
	if u.User != nil {
		loc.user = u.User.Username()
		loc.pword, _ = u.User.Password()
	}
	if loc.user == "" {
		loc.user, loc.pword = "anonymous", "anonymous"
	}
	return loc, nil
}

// Fetch implements Fetcher
func (f *FTPFetcher) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	loc, err := f.parse(uri)
	if err != nil {
		return 0, fmt.Errorf("FTPFetcher.%w", err)
	}
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	// Connection to FTP
	ftpOption := []ftp.DialOption{ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx)}
	if loc.tls {
		ftpOption = append(ftpOption, ftp.DialWithTLS(&tls.Config{ServerName: strings.Split(loc.host, ":")[0]}))
	}
	c, err := ftp.Dial(loc.host, ftpOption...)
	if err != nil {
		return 0, service.MakeTemporary(fmt.Errorf("FTPFetcher.Dial: %w", err))
	}
	defer c.Quit()

	if err = c.Login(loc.user, loc.pword); err != nil {
		return 0, service.MakeFatal(fmt.Errorf("FTPFetcher.Login: %w", err))
	}

	// Get file size
	s, _ := c.FileSize(loc.path)

	// Get file stream
	r, err := c.Retr(loc.path)
	if err != nil {
		err = fmt.Errorf("FTPFetcher.Retr[%s]: %w", uri, err)
		var tperr *textproto.Error
		if errors.As(err, &tperr) && tperr.Code == ftp.StatusFileUnavailable {
			return 0, service.MakeFatal(fmt.Errorf("%w: %v", service.ErrFileNotFound{File: uri}, err))
		}
		return 0, service.MakeTemporary(err)
	}
	defer r.Close()

	n, err := copyToFile(ctx, uri, r, s, dst)
	if err != nil {
		return n, fmt.Errorf("FTPFetcher.%w", err)
	}
	return n, nil
}
