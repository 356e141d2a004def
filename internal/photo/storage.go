// Package photo müşteriden token'lı link ile fotoğraf toplama akışını yönetir.
package photo

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/config"

	"github.com/juju/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Storage yüklenen dosyaların saklandığı yer; anahtar "photo-requests/<id>/..." biçimindedir.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// NewStorage MINIO_ENDPOINT tanımlıysa MinIO, değilse UPLOAD_PATH altındaki yerel klasörü kullanır.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	if cfg.MinIOEndpoint == "" {
		log.Info().Str("path", cfg.UploadPath).Msg("Fotoğraflar yerel diske kaydedilecek")
		return NewLocal(cfg.UploadPath)
	}
	return NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
}

type MinIO struct {
	client *minio.Client
	bucket string
}

func NewMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIO, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errors.Annotate(err, "minio istemcisi oluşturulamadı")
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.Annotatef(err, "bucket kontrolü: %s", bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Annotatef(err, "bucket oluşturulamadı: %s", bucket)
		}
		log.Info().Str("bucket", bucket).Msg("MinIO bucket oluşturuldu")
	}
	return &MinIO{client: client, bucket: bucket}, nil
}

func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Annotatef(err, "minio PUT %s", key)
}

func (m *MinIO) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Annotatef(err, "minio GET %s", key)
	}
	// GetObject tembeldir; olmayan nesne ancak Stat ile anlaşılır
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.NewNotFound(err, "dosya bulunamadı")
		}
		return nil, errors.Annotatef(err, "minio STAT %s", key)
	}
	return obj, nil
}

func (m *MinIO) Remove(ctx context.Context, key string) error {
	return errors.Annotatef(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}), "minio DELETE %s", key)
}

// Local MinIO olmayan kurulumlar ve testler için disk deposu.
type Local struct {
	base string
}

func NewLocal(base string) (*Local, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Annotatef(err, "upload klasörü oluşturulamadı: %s", abs)
	}
	return &Local{base: abs}, nil
}

// path anahtarın base dışına çıkmasını engeller.
func (l *Local) path(key string) (string, error) {
	p := filepath.Clean(filepath.Join(l.base, filepath.FromSlash(key)))
	if !strings.HasPrefix(p, l.base+string(os.PathSeparator)) {
		return "", apperr.Invalid("geçersiz dosya anahtarı: %q", key)
	}
	return p, nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Trace(err)
	}

	tmp := p + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return errors.Annotatef(err, "dosya yazılamadı: %s", key)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(tmp, p))
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound(err, "dosya bulunamadı")
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return f, nil
}

func (l *Local) Remove(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	return nil
}
