/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// s3Lister is the subset of the S3 client this backend depends on, so
// tests can substitute a fake.
type s3Lister interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 serves an S3 bucket/prefix as a playlist: the key listing (sorted
// by S3, which orders lexically) is the track order, and each Next()
// call downloads the next key to a transient local file so the rest
// of the pipeline can open it like any other local path. The previous
// download is removed once a new one starts.
type S3 struct {
	log zerolog.Logger

	client s3Lister
	bucket string
	prefix string
	tmpDir string

	mu       sync.Mutex
	keys     []string
	idx      int
	lineno   int
	lastTemp string
}

// NewS3 loads AWS credentials from the default chain (environment,
// shared config, EC2/ECS role) and lists the bucket/prefix once.
func NewS3(ctx context.Context, log zerolog.Logger, bucket, prefix string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("playlist: loading AWS config: %w", err)
	}
	tmpDir, err := os.MkdirTemp("", "ices-playlist-s3-*")
	if err != nil {
		return nil, fmt.Errorf("playlist: creating temp dir: %w", err)
	}
	b := &S3{
		log:    log,
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		tmpDir: tmpDir,
	}
	if err := b.listLocked(ctx); err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	return b, nil
}

func (b *S3) listLocked(ctx context.Context) error {
	var keys []string
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &b.bucket,
			Prefix:            &b.prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("playlist: listing s3://%s/%s: %w", b.bucket, b.prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil && *obj.Key != "" {
				keys = append(keys, *obj.Key)
			}
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	if len(keys) == 0 {
		return fmt.Errorf("playlist: no objects under s3://%s/%s", b.bucket, b.prefix)
	}
	b.keys = keys
	b.idx = 0
	return nil
}

// Next downloads the next key in the listing to a temp file and
// returns its local path, wrapping back to the first key at the end.
func (b *S3) Next() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.idx >= len(b.keys) {
		b.idx = 0
		b.lineno = 0
	}
	key := b.keys[b.idx]
	b.idx++
	b.lineno++

	ctx := context.Background()
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.bucket, Key: &key})
	if err != nil {
		return "", fmt.Errorf("playlist: fetching s3://%s/%s: %w", b.bucket, key, err)
	}
	defer out.Body.Close()

	dest := filepath.Join(b.tmpDir, filepath.Base(key))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("playlist: creating temp file for %s: %w", key, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("playlist: writing temp file for %s: %w", key, err)
	}
	f.Close()

	if b.lastTemp != "" && b.lastTemp != dest {
		os.Remove(b.lastTemp)
	}
	b.lastTemp = dest

	b.log.Debug().Str("bucket", b.bucket).Str("key", key).Str("local", dest).Msg("s3 playlist serving entry")
	return dest, nil
}

func (b *S3) Lineno() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineno
}

func (b *S3) MetadataOverride() string { return "" }
func (b *S3) TimelimitSeconds() int    { return 0 }

func (b *S3) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listLocked(context.Background())
}

func (b *S3) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return os.RemoveAll(b.tmpDir)
}
