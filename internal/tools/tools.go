// Package tools собирает CommandSpec для внешних инструментов pipeline:
// STAR (выравнивание), sambamba (индексация BAM), pigz и pbzip2 (распаковка FASTQ).
//
// Пакет не запускает процессы, только описывает их. Запуск выполняет
// process.Runner.
package tools

import "strconv"

// Имена исполняемых файлов по умолчанию.
const (
	DefaultSTAR     = "STAR"
	DefaultSambamba = "sambamba"
	DefaultPigz     = "pigz"
	DefaultPbzip2   = "pbzip2"
)

// DefaultSTARTuning — параметры выравнивания, передаются STAR как есть.
var DefaultSTARTuning = []string{
	"--outSAMstrandField", "intronMotif",
	"--chimSegmentMin", "10",
	"--chimJunctionOverhangMin", "10",
	"--outSAMtype", "BAM", "SortedByCoordinate",
	"--outBAMcompression", "5",
	"--limitBAMsortRAM", "80000000000",
}

func orDefault(path, def string) string {
	if path == "" {
		return def
	}
	return path
}

func threadsArg(n int) string {
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n)
}
