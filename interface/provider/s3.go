package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

// DefaultS3Region is the region of the Sentinel-2 COG bucket of Earth Search
const DefaultS3Region = "us-west-2"

// S3Fetcher implements Fetcher for s3://bucket/key uris
type S3Fetcher struct {
	Region        string
	Endpoint      string
	Anonymous     bool
	RequesterPays bool
	// Static credentials, if not Anonymous (otherwise, default credential chain)
	AccessKeyID     string
	SecretAccessKey string

	once       sync.Once
	downloader *manager.Downloader
	err        error
}

func (f *S3Fetcher) init(ctx context.Context) error {
	f.once.Do(func() {
		region := f.Region
		if region == "" {
			region = DefaultS3Region
		}
		opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
		switch {
		case f.Anonymous:
			opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
		case f.AccessKeyID != "":
			opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(f.AccessKeyID, f.SecretAccessKey, "")))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			f.err = service.MakeFatal(fmt.Errorf("S3Fetcher config.LoadDefaultConfig: %w", err))
			return
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if f.Endpoint != "" {
				o.BaseEndpoint = aws.String(f.Endpoint)
				o.UsePathStyle = true
			}
		})
		f.downloader = manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = 10 * 1024 * 1024 // 10MB per part
		})
	})
	return f.err
}

// Fetch implements Fetcher
func (f *S3Fetcher) Fetch(ctx context.Context, uri, dst string) (int64, error) {
	if err := f.init(ctx); err != nil {
		return 0, err
	}
	bucket, key, err := splitBucketURI(uri)
	if err != nil {
		return 0, fmt.Errorf("S3Fetcher.%w", err)
	}

	file, err := os.Create(dst)
	if err != nil {
		return 0, service.MakeFatal(fmt.Errorf("S3Fetcher: failed to create file %s: %w", dst, err))
	}
	defer file.Close()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if f.RequesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}
	n, err := f.downloader.Download(ctx, file, input)
	if err != nil {
		err = fmt.Errorf("S3Fetcher: failed to download object %s:%s: %w", bucket, key, err)
		var nsk *types.NoSuchKey
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsk) || errors.As(err, &nsb) {
			return 0, service.MakeFatal(fmt.Errorf("%w: %v", service.ErrFileNotFound{File: uri}, err))
		}
		if service.Temporary(err) {
			return 0, service.MakeTemporary(err)
		}
		return 0, err
	}
	log.Logger(ctx).Sugar().Debugf("%s: %s downloaded", uri, fmtBytes(n))
	return n, nil
}
