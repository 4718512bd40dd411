package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/staralign/internal/config"
	"github.com/shaiso/staralign/internal/domain"
)

// inputFlags — входы pipeline.
type inputFlags struct {
	r1    string
	r2    string
	ref   string
	runID string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.r1, "r1", "", "FASTQ of read 1 (path, key or s3://bucket/key)")
	cmd.Flags().StringVar(&f.r2, "r2", "", "FASTQ of read 2 (path, key or s3://bucket/key)")
	cmd.Flags().StringVar(&f.ref, "ref", "", "Reference genome id, e.g. GRCh38")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run ID (default: generated)")

	cmd.MarkFlagRequired("r1")
	cmd.MarkFlagRequired("r2")
	cmd.MarkFlagRequired("ref")
}

func (f *inputFlags) input() domain.PipelineInput {
	return domain.PipelineInput{
		FastqR1Ref:        f.r1,
		FastqR2Ref:        f.r2,
		ReferenceGenomeID: f.ref,
	}
}

// pipelineFlags — флаги, перекрывающие конфигурацию.
type pipelineFlags struct {
	workDir   string
	threads   int
	storage   string
	outputDir string
	verbose   bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "Root of per-run working directories")
	cmd.Flags().IntVar(&f.threads, "threads", 0, "Threads for STAR, sambamba and pigz")
	cmd.Flags().StringVar(&f.storage, "storage", "", "Storage backend (local, s3)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Publish directory for the local backend")
	cmd.Flags().BoolVar(&f.verbose, "verbose", true, "Print stage progress to stderr")
}

// apply накладывает явно заданные флаги поверх cfg.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("work-dir") {
		cfg.WorkRoot = f.workDir
	}
	if flags.Changed("threads") {
		cfg.Threads = f.threads
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = f.storage
	}
	if flags.Changed("output-dir") {
		cfg.Storage.OutputDir = f.outputDir
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}
