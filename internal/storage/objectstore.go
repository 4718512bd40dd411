package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Scheme — схема ссылок на объекты.
const S3Scheme = "s3://"

// ObjectStoreConfig — параметры подключения к S3/MinIO.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Bucket — бакет для ссылок без схемы и для публикации.
	Bucket string

	// Prefix — префикс ключей публикации.
	Prefix string

	Logger *slog.Logger
}

// ObjectStore — resolver и publisher поверх minio-go.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewObjectStore создаёт клиент MinIO/S3.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrConfig)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: credentials are required", ErrConfig)
	}

	// Endpoint может быть URL или host:port
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// Ping проверяет доступность бакета.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if s.bucket == "" {
		return ErrNoBucket
	}
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s: %w", s.bucket, ErrNotFound)
	}
	return nil
}

// Fetch скачивает один объект в destPath.
func (s *ObjectStore) Fetch(ctx context.Context, ref, destPath string) (string, error) {
	bucket, key, err := ParseRef(ref, s.bucket)
	if err != nil {
		return "", err
	}

	if err := s.client.FGetObject(ctx, bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return "", classifyError(err, ref)
	}

	s.logger.Debug("object fetched", "bucket", bucket, "key", key, "path", destPath)
	return destPath, nil
}

// FetchArchive скачивает все объекты под префиксом ref в
// destDir/<последний элемент префикса>, сохраняя относительные пути.
func (s *ObjectStore) FetchArchive(ctx context.Context, ref, destDir string) (string, error) {
	bucket, prefix, err := ParseRef(ref, s.bucket)
	if err != nil {
		return "", err
	}
	prefix = strings.TrimSuffix(prefix, "/")
	root := filepath.Join(destDir, path.Base(prefix))

	count, err := fetchObjects(ctx, s.client.ListObjects, s.client.FGetObject, bucket, prefix, root)
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", ref, err)
	}
	if count == 0 {
		return "", fmt.Errorf("archive %s: %w", ref, ErrNotFound)
	}

	s.logger.Debug("archive fetched", "bucket", bucket, "prefix", prefix, "objects", count, "path", root)
	return root, nil
}

// objectLister — сигнатура minio.Client.ListObjects.
type objectLister func(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo

// objectGetter — сигнатура minio.Client.FGetObject.
type objectGetter func(ctx context.Context, bucket, key, filePath string, opts minio.GetObjectOptions) error

// fetchObjects скачивает объекты под prefix в root и возвращает их число.
// При выходе ctx листинга отменяется, иначе горутина ListObjects
// остаётся заблокированной на отправке.
func fetchObjects(ctx context.Context, list objectLister, get objectGetter, bucket, prefix, root string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := list(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix + "/",
		Recursive: true,
	})

	count := 0
	for obj := range objects {
		if obj.Err != nil {
			return count, classifyError(obj.Err, prefix)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		dst, err := objectPath(root, strings.TrimPrefix(obj.Key, prefix+"/"))
		if err != nil {
			return count, err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return count, fmt.Errorf("create dir for %s: %w", obj.Key, err)
		}
		if err := get(ctx, bucket, obj.Key, dst, minio.GetObjectOptions{}); err != nil {
			return count, classifyError(err, obj.Key)
		}
		count++
	}
	return count, nil
}

// objectPath возвращает локальный путь объекта с относительным ключом rel.
// Ключ, выходящий за пределы root, — ErrUnsafeKey.
func objectPath(root, rel string) (string, error) {
	dst := filepath.Join(root, filepath.FromSlash(rel))
	back, err := filepath.Rel(root, dst)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", rel, ErrUnsafeKey)
	}
	return dst, nil
}

// Publish загружает локальный файл под ключом key и возвращает s3:// ссылку.
func (s *ObjectStore) Publish(ctx context.Context, key, localPath string) (string, error) {
	if s.bucket == "" {
		return "", ErrNoBucket
	}

	objectKey := strings.TrimPrefix(key, "/")
	if s.prefix != "" {
		objectKey = s.prefix + "/" + objectKey
	}

	info, err := s.client.FPutObject(ctx, s.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", classifyError(err, objectKey)
	}

	s.logger.Debug("object published", "bucket", s.bucket, "key", objectKey, "size", info.Size)
	return S3Scheme + s.bucket + "/" + objectKey, nil
}

// ParseRef разбирает ссылку s3://bucket/key или голый ключ в бакете по умолчанию.
func ParseRef(ref, defaultBucket string) (bucket, key string, err error) {
	if ref == "" {
		return "", "", ErrEmptyRef
	}

	if rest, ok := strings.CutPrefix(ref, S3Scheme); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return "", "", fmt.Errorf("%w: %q", ErrEmptyRef, ref)
		}
		return bucket, key, nil
	}

	if defaultBucket == "" {
		return "", "", ErrNoBucket
	}
	key = strings.TrimPrefix(ref, "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrEmptyRef, ref)
	}
	return defaultBucket, key, nil
}

// classifyError приводит ошибки minio к ошибкам пакета.
func classifyError(err error, ref string) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", ref, err)
}
