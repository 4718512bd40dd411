package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileScheme — схема ссылок, возвращаемых LocalStore.Publish.
const FileScheme = "file://"

// LocalStore — resolver и publisher на локальной файловой системе.
type LocalStore struct {
	// root — корень для относительных ссылок. Пусто — текущая директория.
	root string

	// outDir — куда публикуются артефакты.
	outDir string

	logger *slog.Logger
}

// NewLocalStore создаёт LocalStore.
func NewLocalStore(root, outDir string, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{root: root, outDir: outDir, logger: logger}
}

func (s *LocalStore) resolve(ref string) (string, error) {
	ref = strings.TrimPrefix(ref, FileScheme)
	if ref == "" {
		return "", ErrEmptyRef
	}
	if filepath.IsAbs(ref) || s.root == "" {
		return ref, nil
	}
	return filepath.Join(s.root, ref), nil
}

// Fetch копирует файл ref в destPath.
func (s *LocalStore) Fetch(ctx context.Context, ref, destPath string) (string, error) {
	src, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := copyFile(src, destPath); err != nil {
		return "", err
	}
	s.logger.Debug("file fetched", "src", src, "path", destPath)
	return destPath, nil
}

// FetchArchive рекурсивно копирует директорию ref в destDir/<basename>.
func (s *LocalStore) FetchArchive(ctx context.Context, ref, destDir string) (string, error) {
	src, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	src = filepath.Clean(src)

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("archive %s: %w", ref, ErrNotFound)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("archive %s is not a directory", ref)
	}

	root := filepath.Join(destDir, filepath.Base(src))
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return copyFile(p, dst)
	})
	if err != nil {
		return "", fmt.Errorf("copy archive %s: %w", ref, err)
	}

	s.logger.Debug("archive fetched", "src", src, "path", root)
	return root, nil
}

// Publish копирует localPath в outDir/key и возвращает file:// ссылку.
func (s *LocalStore) Publish(ctx context.Context, key, localPath string) (string, error) {
	if s.outDir == "" {
		return "", fmt.Errorf("%w: output dir is required", ErrConfig)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.outDir, filepath.FromSlash(key))
	if err := copyFile(localPath, dst); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	s.logger.Debug("file published", "src", localPath, "path", abs)
	return FileScheme + abs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", src, ErrNotFound)
		}
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
