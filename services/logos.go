package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

// Logo is an opened service logo. Callers must close Body.
type Logo struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// LogoStore serves the image bytes referenced by Service.Logo
type LogoStore interface {
	Open(ctx context.Context, key string) (*Logo, error)
}

// NewLogoStoreFromConfig returns an S3 store when a bucket is configured, otherwise a directory store
func NewLogoStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (LogoStore, error) {
	if cfg.GetLogoBucket() == "" {
		return NewDirLogoStore(cfg.GetLogoDir()), nil
	}
	return NewS3LogoStore(ctx, cfg)
}

// DirLogoStore reads logos from a local directory
type DirLogoStore struct {
	root string
}

func NewDirLogoStore(root string) *DirLogoStore {
	return &DirLogoStore{root: root}
}

func (d *DirLogoStore) Open(_ context.Context, key string) (*Logo, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "logo %s", key)
		}
		return nil, fmt.Errorf("[DirLogoStore Open] %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("[DirLogoStore Open] %w", err)
	}
	return &Logo{Body: f, ContentType: contentTypeFor(clean), Size: info.Size()}, nil
}

// S3LogoStore reads logos from an S3 compatible bucket
type S3LogoStore struct {
	client *s3.Client
	bucket string
}

func NewS3LogoStore(ctx context.Context, cfg config.StoreConfig) (*S3LogoStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.GetS3Region())}
	if cfg.GetS3AccessKey() != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.GetS3AccessKey(), cfg.GetS3SecretKey(), ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("[NewS3LogoStore] %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := cfg.GetS3Endpoint(); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3LogoStore{client: client, bucket: cfg.GetLogoBucket()}, nil
}

func (s *S3LogoStore) Open(ctx context.Context, key string) (*Logo, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "logo %s", key)
		}
		return nil, fmt.Errorf("[S3LogoStore Open] %w", err)
	}

	logo := &Logo{Body: out.Body, ContentType: aws.ToString(out.ContentType), Size: aws.ToInt64(out.ContentLength)}
	if logo.ContentType == "" {
		logo.ContentType = contentTypeFor(clean)
	}
	return logo, nil
}

func cleanKey(key string) (string, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/")
	if key == "" || clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", apperrors.NewValidationError("logo", "invalid logo key %q", key)
	}
	return clean, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
