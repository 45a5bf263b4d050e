package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"quizdesk/internal/config"
)

// URLPrefix is where local uploads are served over HTTP.
const URLPrefix = "/uploads/"

// Provider stores question images and hands back a retrievable path.
type Provider interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
}

// New picks the provider named by cfg.Type.
func New(cfg config.StorageConfig) (Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocal(cfg.LocalPath), nil
	case "minio":
		return NewMinio(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// Local keeps files in a directory served under URLPrefix.
type Local struct {
	Dir string
}

func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

func (p *Local) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	name = filepath.Base(name)
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(filepath.Join(p.Dir, name))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

func (p *Local) Remove(_ context.Context, path string) error {
	name := filepath.Base(strings.TrimPrefix(path, URLPrefix))
	err := os.Remove(filepath.Join(p.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Minio keeps files in a bucket; paths look like /{bucket}/{name}.
type Minio struct {
	client *minio.Client
	bucket string
}

func NewMinio(cfg config.StorageConfig) (*Minio, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Minio{client: client, bucket: cfg.Minio.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (p *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{})
}

func (p *Minio) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if size <= 0 {
		size = -1
	}
	_, err := p.client.PutObject(ctx, p.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.path(name), nil
}

func (p *Minio) Remove(ctx context.Context, path string) error {
	name := strings.TrimPrefix(path, "/"+p.bucket+"/")
	return p.client.RemoveObject(ctx, p.bucket, name, minio.RemoveObjectOptions{})
}

func (p *Minio) path(name string) string {
	return "/" + p.bucket + "/" + name
}
