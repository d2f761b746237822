// Package objectsink uploads the catalog JSON to an S3 compatible bucket.
package objectsink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jgivc/stlcatalog/internal/catalog"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	contentType   = "application/json"
	metaRunID     = "Run-Id"
	metaFiles     = "Files"
	defaultRegion = "us-east-1"
)

type objectSink struct {
	client   *minio.Client
	cfg      *config.ObjectConfig
	initOnce sync.Once
	initErr  error
	log      *slog.Logger
}

func NewObjectSink(cfg *config.ObjectConfig, log *slog.Logger) (*objectSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot init object store client: %w", err)
	}

	return &objectSink{
		client: client,
		cfg:    cfg,
		log:    log.With(slog.String("item", "ObjectSink"), slog.String("bucket", cfg.Bucket)),
	}, nil
}

func (s *objectSink) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
		if err != nil {
			s.initErr = err

			return
		}

		if exists {
			return
		}

		s.log.Info("Create bucket")
		s.initErr = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
	})

	return s.initErr
}

func (s *objectSink) Save(ctx context.Context, result *entity.ScanResult) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("cannot ensure bucket: %w", err)
	}

	data, err := catalog.Encode(result.Catalog)
	if err != nil {
		return err
	}

	info, err := s.client.PutObject(ctx, s.cfg.Bucket, s.cfg.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			metaRunID: result.RunID,
			metaFiles: fmt.Sprint(result.Catalog.Stats().Files),
		},
	})
	if err != nil {
		return fmt.Errorf("cannot upload catalog: %w", err)
	}

	s.log.Info("Catalog uploaded", slog.String("key", info.Key), slog.Int64("size", info.Size))

	return nil
}
