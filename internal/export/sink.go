package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/utils"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink persists a finished artifact and returns where it went.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// LocalSink writes artifacts into Dir.
type LocalSink struct {
	Dir string
}

// Put writes data to Dir/name atomically.
func (s LocalSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", errs.Wrap(errs.ErrKindExportFailed, "create output directory", err)
	}
	dst := filepath.Join(dir, filepath.Base(name))
	if err := utils.SafeWriteFile(dst, data); err != nil {
		return "", errs.Wrap(errs.ErrKindExportFailed, "write "+dst, err)
	}
	return dst, nil
}

// MinioConfig holds the settings for an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	Prefix    string
}

// MinioSink uploads artifacts to a MinIO/S3 bucket. Safe for concurrent use.
type MinioSink struct {
	client *miniogo.Client
	bucket string
	prefix string
}

// NewMinioSink builds a client for cfg. No request is made until Put.
func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "minio sink needs an endpoint and a bucket")
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindExportFailed, "failed to create minio client", err)
	}
	return &MinioSink{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Put uploads data under prefix/name and returns its s3:// location.
func (s *MinioSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := path.Base(filepath.ToSlash(name))
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", mapMinioError(err, fmt.Sprintf("upload %s to bucket %s", key, s.bucket))
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// mapMinioError classifies SDK errors; everything is an export failure except
// a missing bucket, which is reported as NotFound.
func mapMinioError(err error, msg string) *errs.Error {
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchBucket" {
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		}
	}
	return errs.Wrap(errs.ErrKindExportFailed, msg, err)
}

// SinkConfig selects and configures a sink.
type SinkConfig struct {
	Kind  string // "local" or "minio"
	Dir   string
	Minio MinioConfig
}

// NewSink builds the sink named by cfg.Kind; empty means local.
func NewSink(cfg SinkConfig) (Sink, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "local":
		return LocalSink{Dir: cfg.Dir}, nil
	case "minio", "s3":
		s, err := NewMinioSink(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown export sink %q (want local or minio)", cfg.Kind)
	}
}

// ContentType returns the MIME type for an artifact name.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
