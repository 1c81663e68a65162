package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrBucketMissing is returned by Ping when the configured bucket does not exist.
var ErrBucketMissing = errors.New("persist: s3 bucket does not exist")

const (
	s3NoSuchKey     = "NoSuchKey"
	s3ContentType   = "application/octet-stream"
	defaultEndpoint = "s3.amazonaws.com"
)

// S3Config describes the bucket holding sketches.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Store keeps one object per sketch in an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	codec  Codec
	bucket string
	prefix string
}

// NewS3Store creates a client for cfg. Without static keys, credentials come
// from the AWS environment variables.
func NewS3Store(cfg S3Config, codec Codec) (*S3Store, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	creds := credentials.NewEnvAWS()
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &S3Store{client: client, codec: codec, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Store) key(name string) string {
	return s.prefix + name + SketchExtension + s.codec.Extension()
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	encoded, err := Compress(s.codec, data)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(encoded), int64(len(encoded)),
		minio.PutObjectOptions{ContentType: s3ContentType})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", name, err)
	}

	return nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapErr(name, err)
	}
	defer obj.Close()

	encoded, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrapErr(name, err)
	}

	return Decompress(s.codec, encoded)
}

func (s *S3Store) wrapErr(name string, err error) error {
	if minio.ToErrorResponse(err).Code == s3NoSuchKey {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return fmt.Errorf("s3 get %s: %w", name, err)
}

// List implements Store.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	suffix := SketchExtension + s.codec.Extension()

	var names []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3 list: %w", obj.Err)
		}

		name, ok := strings.CutSuffix(strings.TrimPrefix(obj.Key, s.prefix), suffix)
		if !ok || ValidateName(name) != nil {
			continue
		}

		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	err = s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != s3NoSuchKey {
		return fmt.Errorf("s3 delete %s: %w", name, err)
	}

	return nil
}

// Close implements Store.
func (s *S3Store) Close() error { return nil }

// Ping checks that the bucket exists.
func (s *S3Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3 ping: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketMissing, s.bucket)
	}

	return nil
}
