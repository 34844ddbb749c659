package storage

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
)

// S3Config configures the object-store backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// S3Storage downloads documents from an S3-compatible bucket. Object keys are
// laid out as <tenant_id>/<document path>; Download refuses keys outside the
// tenant prefix.
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3 creates an S3Storage from config.
func NewS3(cfg S3Config) (*S3Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "storage: create s3 client")
	}
	return &S3Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Storage) Download(ctx context.Context, storagePath, tenantID string) ([]byte, error) {
	key, err := tenantKey(storagePath, tenantID)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get object %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read object %s", key)
	}
	return data, nil
}

// tenantKey normalizes a storage path into the tenant's key space. Paths
// already prefixed with the tenant ID pass through; anything that escapes the
// prefix (absolute paths, traversal) is rejected.
func tenantKey(storagePath, tenantID string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(storagePath), "/")
	if p == "" || tenantID == "" {
		return "", eris.New("storage: empty storage path or tenant")
	}
	if strings.Contains(p, "..") {
		return "", eris.Errorf("storage: path escapes tenant scope")
	}
	if !strings.HasPrefix(p, tenantID+"/") {
		p = tenantID + "/" + p
	}
	return p, nil
}
