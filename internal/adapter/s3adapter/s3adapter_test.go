package s3adapter

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/stretchr/testify/require"
)

// fakeClient serves a delimiter listing of keys, pageSize entries per page.
type fakeClient struct {
	keys     []string
	pageSize int
	err      error
	calls    int
}

func (f *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	prefix := aws.ToString(in.Prefix)
	seen := map[string]bool{}

	type item struct {
		key    string
		folder bool
	}

	var items []item
	for _, k := range f.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}

		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				items = append(items, item{key: cp, folder: true})
			}

			continue
		}
		items = append(items, item{key: k})
	}

	start := 0
	if in.ContinuationToken != nil {
		for i, it := range items {
			if it.key == *in.ContinuationToken {
				start = i
			}
		}
	}

	end := min(start+f.pageSize, len(items))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(items))}
	if end < len(items) {
		out.NextContinuationToken = aws.String(items[end].key)
	}

	for _, it := range items[start:end] {
		if it.folder {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.key)})
		} else {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(it.key)})
		}
	}

	return out, nil
}

func newSource(client s3.ListObjectsV2APIClient) *s3Source {
	return NewWithClient(client, &config.S3Config{Bucket: "parts", Prefix: "library/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListChildren(t *testing.T) {
	client := &fakeClient{pageSize: 2, keys: []string{
		"library/Bolts/Hex/a.stl",
		"library/Bolts/Hex/b.stl",
		"library/Bolts/",
		"library/Bolts/notes.txt",
		"library/Nuts/n.stl",
		"library/root.stl",
		"other/x.stl",
	}}
	s := newSource(client)

	root, err := s.ListChildren(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []entity.DirEntry{
		{Name: "Bolts", Kind: entity.KindDirectory, RelativePath: "Bolts"},
		{Name: "Nuts", Kind: entity.KindDirectory, RelativePath: "Nuts"},
		{Name: "root.stl", Kind: entity.KindFile, RelativePath: "root.stl", ContentRef: "s3://parts/library/root.stl"},
	}, root)
	require.Equal(t, 2, client.calls)

	bolts, err := s.ListChildren(context.Background(), "Bolts")
	require.NoError(t, err)
	require.Equal(t, []entity.DirEntry{
		{Name: "Hex", Kind: entity.KindDirectory, RelativePath: "Bolts/Hex"},
		{Name: "notes.txt", Kind: entity.KindFile, RelativePath: "Bolts/notes.txt", ContentRef: "s3://parts/library/Bolts/notes.txt"},
	}, bolts)

	_, err = s.ListChildren(context.Background(), "Washers")
	require.ErrorIs(t, err, common.ErrDirectoryAbsent)
}

func TestEmptyFolderMarker(t *testing.T) {
	s := newSource(&fakeClient{pageSize: 10, keys: []string{
		"library/Bolts/Hex/a.stl",
		"library/Bolts/Empty/",
	}})

	bolts, err := s.ListChildren(context.Background(), "Bolts")
	require.NoError(t, err)
	require.Equal(t, []entity.DirEntry{
		{Name: "Empty", Kind: entity.KindDirectory, RelativePath: "Bolts/Empty"},
		{Name: "Hex", Kind: entity.KindDirectory, RelativePath: "Bolts/Hex"},
	}, bolts)

	entries, err := s.ListChildren(context.Background(), "Bolts/Empty")
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = s.ListChildren(context.Background(), "Bolts/Missing")
	require.ErrorIs(t, err, common.ErrDirectoryAbsent)
}

func TestErrorMapping(t *testing.T) {
	_, err := newSource(&fakeClient{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}}).ListChildren(context.Background(), "Bolts")
	require.ErrorIs(t, err, common.ErrSourceFatal)

	_, err = newSource(&fakeClient{err: &smithy.GenericAPIError{Code: "SlowDown"}}).ListChildren(context.Background(), "Bolts")
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
	require.NotErrorIs(t, err, common.ErrSourceFatal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newSource(&fakeClient{err: context.Canceled}).ListChildren(ctx, "Bolts")
	require.ErrorIs(t, err, context.Canceled)
}
