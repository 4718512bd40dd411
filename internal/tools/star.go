package tools

import "github.com/shaiso/staralign/internal/process"

// STAR — выравниватель RNA-seq.
type STAR struct {
	// Path — путь к бинарнику (default: STAR).
	Path string

	// Tuning — параметры сверх обязательных. nil — DefaultSTARTuning.
	Tuning []string
}

// AlignRequest — входы одного выравнивания.
type AlignRequest struct {
	R1         string
	R2         string
	GenomeDir  string
	Annotation string
	Threads    int

	// Dir — рабочая директория, в неё STAR пишет BAM.
	Dir string
}

// Command строит запуск `STAR --runMode alignReads ...`.
// stdout STAR не нужен, результат — BAM в Dir.
func (s STAR) Command(req AlignRequest) process.CommandSpec {
	threads := threadsArg(req.Threads)

	args := []string{
		"--runMode", "alignReads",
		"--genomeDir", req.GenomeDir,
		"--readFilesIn", req.R1, req.R2,
		"--runThreadN", threads,
		"--sjdbGTFfile", req.Annotation,
		"--outBAMsortingThreadN", threads,
	}

	tuning := s.Tuning
	if tuning == nil {
		tuning = DefaultSTARTuning
	}
	args = append(args, tuning...)

	return process.CommandSpec{
		Tool:   orDefault(s.Path, DefaultSTAR),
		Args:   args,
		Dir:    req.Dir,
		Output: process.OutputDiscard,
	}
}
