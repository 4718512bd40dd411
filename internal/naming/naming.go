// Package naming выводит имена артефактов из имён входных файлов.
//
// Все функции чистые: без файловой системы и побочных эффектов.
package naming

import (
	"path/filepath"
	"strings"

	"github.com/shaiso/staralign/internal/domain"
)

// Значения по умолчанию.
const (
	// DefaultMateSuffix — маркер первого рида пары в конце имени.
	DefaultMateSuffix = "_R1"

	// DefaultExtension — расширение выходного BAM.
	DefaultExtension = ".bam"

	// IndexSuffix — суффикс индекса BAM.
	IndexSuffix = ".bai"

	// StagedReadExtension — расширение распакованного FASTQ.
	StagedReadExtension = ".fastq"
)

// Compression — формат сжатия входного FASTQ.
type Compression string

const (
	CompressionNone  Compression = ""
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
)

// compressionExts — расширения сжатия, снимаемые при вычислении префикса.
var compressionExts = []struct {
	ext  string
	kind Compression
}{
	{".gz", CompressionGzip},
	{".bz2", CompressionBzip2},
}

// readExts — расширения FASTQ, снимаемые после расширения сжатия.
var readExts = []string{".fastq", ".fq"}

// Namer выводит имя BAM из имени FASTQ первого рида.
type Namer struct {
	// MateSuffix — маркер рида, снимается один раз (default: "_R1").
	MateSuffix string

	// Extension — расширение результата (default: ".bam").
	Extension string
}

// DefaultNamer — Namer со значениями по умолчанию.
var DefaultNamer = Namer{MateSuffix: DefaultMateSuffix, Extension: DefaultExtension}

// DeriveOutputName возвращает имя BAM для basename первого рида.
//
// Правила:
//  1. Снять одно расширение.
//  2. Снять один завершающий MateSuffix, если он есть.
//  3. Добавить Extension.
//
// Пустое имя после шага 1 — *domain.MalformedInputName.
func (n Namer) DeriveOutputName(basename string) (string, error) {
	stem := strings.TrimSuffix(basename, filepath.Ext(basename))
	if stem == "" {
		return "", &domain.MalformedInputName{Name: basename}
	}

	mate := n.MateSuffix
	if mate == "" {
		mate = DefaultMateSuffix
	}
	// Имя, целиком состоящее из маркера, не укорачиваем до пустого
	if stem != mate {
		stem = strings.TrimSuffix(stem, mate)
	}

	ext := n.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return stem + ext, nil
}

// DeriveOutputName — DefaultNamer.DeriveOutputName.
func DeriveOutputName(basename string) (string, error) {
	return DefaultNamer.DeriveOutputName(basename)
}

// IndexName возвращает имя индекса для BAM.
func IndexName(artifact string) string {
	return artifact + IndexSuffix
}

// StagedPrefix возвращает префикс входного FASTQ: basename ссылки без
// расширения сжатия и затем без расширения FASTQ.
//
//	"s3://bucket/run/sample_R1.fastq.gz" → "sample_R1"
//	"r1.fq"                              → "r1"
func StagedPrefix(ref string) string {
	name := baseName(ref)
	for _, c := range compressionExts {
		if strings.HasSuffix(name, c.ext) {
			name = strings.TrimSuffix(name, c.ext)
			break
		}
	}
	for _, ext := range readExts {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	return name
}

// StagedReadName возвращает имя распакованного FASTQ для ссылки.
func StagedReadName(ref string) string {
	return StagedPrefix(ref) + StagedReadExtension
}

// CompressionOf возвращает формат сжатия файла по расширению ссылки.
func CompressionOf(ref string) Compression {
	name := baseName(ref)
	for _, c := range compressionExts {
		if strings.HasSuffix(name, c.ext) {
			return c.kind
		}
	}
	return CompressionNone
}

// IsCompressed сообщает, сжат ли файл по ссылке.
func IsCompressed(ref string) bool {
	return CompressionOf(ref) != CompressionNone
}

// baseName возвращает последний элемент ссылки (s3://, путь или ключ).
func baseName(ref string) string {
	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
