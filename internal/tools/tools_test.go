package tools

import (
	"slices"
	"testing"

	"github.com/shaiso/staralign/internal/process"
)

func argValue(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

// --- STAR Tests ---

func TestSTAR_Command(t *testing.T) {
	spec := STAR{}.Command(AlignRequest{
		R1:         "/w/r1.fastq",
		R2:         "/w/r2.fastq",
		GenomeDir:  "/w/STAR",
		Annotation: "/w/STAR/refFlat_no_junk.gtf",
		Threads:    8,
		Dir:        "/w",
	})

	if spec.Tool != DefaultSTAR {
		t.Errorf("expected tool %s, got %s", DefaultSTAR, spec.Tool)
	}
	if spec.Dir != "/w" {
		t.Errorf("expected dir /w, got %s", spec.Dir)
	}
	if spec.Output != process.OutputDiscard {
		t.Error("STAR stdout should be discarded")
	}

	checks := map[string]string{
		"--runMode":              "alignReads",
		"--genomeDir":            "/w/STAR",
		"--readFilesIn":          "/w/r1.fastq",
		"--runThreadN":           "8",
		"--outBAMsortingThreadN": "8",
		"--sjdbGTFfile":          "/w/STAR/refFlat_no_junk.gtf",
		"--outSAMstrandField":    "intronMotif",
		"--limitBAMsortRAM":      "80000000000",
	}
	for flag, want := range checks {
		if got, ok := argValue(spec.Args, flag); !ok || got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}

	i := slices.Index(spec.Args, "--readFilesIn")
	if spec.Args[i+2] != "/w/r2.fastq" {
		t.Errorf("R2 should follow R1, got %q", spec.Args[i+2])
	}
}

func TestSTAR_CustomTuning(t *testing.T) {
	spec := STAR{Path: "/opt/STAR", Tuning: []string{"--twopassMode", "Basic"}}.Command(AlignRequest{Threads: 0})

	if spec.Tool != "/opt/STAR" {
		t.Errorf("unexpected tool %s", spec.Tool)
	}
	if _, ok := argValue(spec.Args, "--outSAMtype"); ok {
		t.Error("default tuning should be replaced")
	}
	if got, _ := argValue(spec.Args, "--twopassMode"); got != "Basic" {
		t.Errorf("custom tuning missing, args %v", spec.Args)
	}
	if got, _ := argValue(spec.Args, "--runThreadN"); got != "1" {
		t.Errorf("threads should be clamped to 1, got %s", got)
	}
}

// --- Sambamba / Pigz Tests ---

func TestSambamba_IndexCommand(t *testing.T) {
	spec := Sambamba{}.IndexCommand("/w/sample.bam", 4)

	want := []string{"index", "--nthreads", "4", "/w/sample.bam"}
	if spec.Tool != DefaultSambamba || !slices.Equal(spec.Args, want) {
		t.Errorf("unexpected command %s", spec)
	}
}

func TestPigz_DecompressCommand(t *testing.T) {
	spec := Pigz{}.DecompressCommand("/w/r1.fq.gz", "/w/r1.fastq", 2)

	want := []string{"-d", "-c", "-p", "2", "/w/r1.fq.gz"}
	if !slices.Equal(spec.Args, want) {
		t.Errorf("unexpected args %v", spec.Args)
	}
	if spec.Stdout != "/w/r1.fastq" {
		t.Errorf("stdout should go to %s, got %s", "/w/r1.fastq", spec.Stdout)
	}
}

func TestPbzip2_DecompressCommand(t *testing.T) {
	spec := Pbzip2{}.DecompressCommand("/w/r1.fq.bz2", "/w/r1.fastq", 3)

	want := []string{"-d", "-c", "-p3", "/w/r1.fq.bz2"}
	if spec.Tool != DefaultPbzip2 || !slices.Equal(spec.Args, want) {
		t.Errorf("unexpected command %s", spec)
	}
	if spec.Stdout != "/w/r1.fastq" {
		t.Errorf("stdout should go to %s, got %s", "/w/r1.fastq", spec.Stdout)
	}
}
