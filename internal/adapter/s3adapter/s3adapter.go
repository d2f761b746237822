// Package s3adapter lists a bucket prefix as a directory tree, treating "/"
// as the separator.
package s3adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/jgivc/stlcatalog/internal/util"
)

const delimiter = "/"

var fatalCodes = map[string]struct{}{
	"AccessDenied":          {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"NoSuchBucket":          {},
	"ExpiredToken":          {},
}

type s3Source struct {
	client s3.ListObjectsV2APIClient
	cfg    *config.S3Config
	prefix string
	log    *slog.Logger
}

func New(ctx context.Context, cfg *config.S3Config, log *slog.Logger) (*s3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg, log), nil
}

func NewWithClient(client s3.ListObjectsV2APIClient, cfg *config.S3Config, log *slog.Logger) *s3Source {
	prefix := util.NormalizePath(cfg.Prefix)
	if prefix != "" {
		prefix += delimiter
	}

	return &s3Source{
		client: client,
		cfg:    cfg,
		prefix: prefix,
		log:    log.With(slog.String("item", "S3Source"), slog.String("bucket", cfg.Bucket)),
	}
}

func (s *s3Source) ListChildren(ctx context.Context, dirPath string) ([]entity.DirEntry, error) {
	dirPath = util.NormalizePath(dirPath)

	listPrefix := s.prefix
	if dirPath != "" {
		listPrefix += dirPath + delimiter
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String(delimiter),
	})

	var (
		entries []entity.DirEntry
		marker  bool
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.mapError(ctx, dirPath, err)
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), listPrefix), delimiter)
			if name == "" {
				continue
			}

			entries = append(entries, entity.DirEntry{
				Name:         name,
				Kind:         entity.KindDirectory,
				RelativePath: util.JoinPath(dirPath, name),
			})
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, listPrefix)
			if key == listPrefix {
				marker = true

				continue
			}
			if name == "" || strings.Contains(name, delimiter) {
				continue
			}

			entries = append(entries, entity.DirEntry{
				Name:         name,
				Kind:         entity.KindFile,
				RelativePath: util.JoinPath(dirPath, name),
				ContentRef:   "s3://" + s.cfg.Bucket + "/" + key,
			})
		}
	}

	// An empty folder still has its marker object.
	if len(entries) == 0 && dirPath != "" && !marker {
		return nil, fmt.Errorf("no objects under %s: %w", listPrefix, common.ErrDirectoryAbsent)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

func (s *s3Source) mapError(ctx context.Context, dirPath string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := fatalCodes[apiErr.ErrorCode()]; ok {
			s.log.Error("Bucket is not accessible", slog.String("code", apiErr.ErrorCode()), slog.Any("error", err))

			return fmt.Errorf("cannot list %s: %w: %w", dirPath, common.ErrSourceFatal, err)
		}
	}

	return fmt.Errorf("cannot list %s: %w: %w", dirPath, common.ErrSourceUnavailable, err)
}
