package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

// --- ParseRef Tests ---

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref        string
		def        string
		wantBucket string
		wantKey    string
		wantErr    error
	}{
		{"s3://data/reads/r1.fq.gz", "", "data", "reads/r1.fq.gz", nil},
		{"reads/r1.fq.gz", "default", "default", "reads/r1.fq.gz", nil},
		{"/reads/r1.fq.gz", "default", "default", "reads/r1.fq.gz", nil},
		{"reads/r1.fq.gz", "", "", "", ErrNoBucket},
		{"", "default", "", "", ErrEmptyRef},
		{"s3://data", "", "", "", ErrEmptyRef},
		{"s3:///key", "", "", "", ErrEmptyRef},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := ParseRef(tt.ref, tt.def)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("got %s/%s, want %s/%s", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestNewObjectStore_Validation(t *testing.T) {
	if _, err := NewObjectStore(ObjectStoreConfig{}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig without endpoint, got %v", err)
	}
	if _, err := NewObjectStore(ObjectStoreConfig{Endpoint: "localhost:9000"}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig without credentials, got %v", err)
	}

	s, err := NewObjectStore(ObjectStoreConfig{
		Endpoint:  "https://minio.local:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "results",
		Prefix:    "/star/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.prefix != "star" {
		t.Errorf("prefix should be trimmed, got %q", s.prefix)
	}
}

// --- LocalStore Tests ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStore_Fetch(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "r1.fq.gz"), "reads")

	s := NewLocalStore(src, "", nil)

	got, err := s.Fetch(context.Background(), "r1.fq.gz", filepath.Join(dst, "r1.fq.gz"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(got)
	if string(data) != "reads" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := s.Fetch(context.Background(), "missing.fq.gz", filepath.Join(dst, "x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_FetchArchive(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	bundle := filepath.Join(src, "GRCh38", "STAR")
	writeFile(t, filepath.Join(bundle, "SA"), "index")
	writeFile(t, filepath.Join(bundle, "refFlat_no_junk.gtf"), "gtf")
	writeFile(t, filepath.Join(bundle, "sub", "chrName.txt"), "chr1")

	s := NewLocalStore("", "", nil)

	root, err := s.FetchArchive(context.Background(), bundle, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != filepath.Join(dst, "STAR") {
		t.Errorf("unexpected root %s", root)
	}
	for _, rel := range []string{"SA", "refFlat_no_junk.gtf", "sub/chrName.txt"} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	if _, err := s.FetchArchive(context.Background(), filepath.Join(src, "nope"), dst); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_Publish(t *testing.T) {
	work := t.TempDir()
	out := t.TempDir()
	bam := filepath.Join(work, "sample.bam")
	writeFile(t, bam, "bam")

	s := NewLocalStore("", out, nil)

	handle, err := s.Publish(context.Background(), "run-1/sample.bam", bam)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(handle, FileScheme) || !strings.HasSuffix(handle, "run-1/sample.bam") {
		t.Errorf("unexpected handle %s", handle)
	}
	if _, err := os.Stat(filepath.Join(out, "run-1", "sample.bam")); err != nil {
		t.Errorf("published file missing: %v", err)
	}

	noOut := NewLocalStore("", "", nil)
	if _, err := noOut.Publish(context.Background(), "k", bam); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLocalStore("", t.TempDir(), nil)
	if _, err := s.Fetch(ctx, "/etc/hostname", filepath.Join(t.TempDir(), "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// --- ObjectStore archive Tests ---

// fakeListing отдаёт ключи через небуферизованный канал, как minio:
// отправка блокируется, пока потребитель не прочитает или ctx не отменится.
func fakeListing(keys []string, stopped chan<- struct{}) objectLister {
	return func(ctx context.Context, _ string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo)
		go func() {
			defer close(stopped)
			defer close(ch)
			for _, key := range keys {
				select {
				case ch <- minio.ObjectInfo{Key: key}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	}
}

func writeObject(_ context.Context, _, key, filePath string, _ minio.GetObjectOptions) error {
	return os.WriteFile(filePath, []byte(key), 0o644)
}

func TestFetchObjects(t *testing.T) {
	root := filepath.Join(t.TempDir(), "STAR")
	stopped := make(chan struct{})
	list := fakeListing([]string{"refs/STAR/SA", "refs/STAR/sub/", "refs/STAR/sub/genes.gtf"}, stopped)

	count, err := fetchObjects(context.Background(), list, writeObject, "b", "refs/STAR", root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 objects, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(root, "sub", "genes.gtf")); err != nil {
		t.Errorf("nested object missing: %v", err)
	}
}

func TestFetchObjects_StopsListingOnError(t *testing.T) {
	stopped := make(chan struct{})
	list := fakeListing([]string{"refs/STAR/a", "refs/STAR/b", "refs/STAR/c"}, stopped)
	failing := func(context.Context, string, string, string, minio.GetObjectOptions) error {
		return errors.New("connection reset")
	}

	_, err := fetchObjects(context.Background(), list, failing, "b", "refs/STAR", t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("listing goroutine still blocked after early return")
	}
}

func TestFetchObjects_RejectsEscapingKey(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "STAR")
	stopped := make(chan struct{})
	list := fakeListing([]string{"refs/STAR/../../x"}, stopped)

	_, err := fetchObjects(context.Background(), list, writeObject, "b", "refs/STAR", root)
	if !errors.Is(err, ErrUnsafeKey) {
		t.Fatalf("expected ErrUnsafeKey, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "..", "x")); err == nil {
		t.Error("object written outside archive root")
	}
}

func TestObjectPath(t *testing.T) {
	tests := []struct {
		rel string
		ok  bool
	}{
		{"SA", true},
		{"sub/genes.gtf", true},
		{"a/../b", true},
		{"../x", false},
		{"sub/../../x", false},
		{"", false},
	}

	for _, tt := range tests {
		_, err := objectPath("/w/STAR", tt.rel)
		if (err == nil) != tt.ok {
			t.Errorf("objectPath(%q) error = %v, want ok=%v", tt.rel, err, tt.ok)
		}
	}
}
