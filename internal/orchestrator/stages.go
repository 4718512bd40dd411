package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/naming"
	"github.com/shaiso/staralign/internal/process"
	"github.com/shaiso/staralign/internal/stage"
	"github.com/shaiso/staralign/internal/tools"
)

// Имена коллабораторов в MissingCollaboratorResponse.
const (
	collaboratorResolver  = "resolver"
	collaboratorPublisher = "publisher"
)

// --- Acquiring ---

// acquire скачивает R1, R2 и архив референса параллельно.
// Сжатые FASTQ распаковываются внутри задачи своего рида.
func (c *Controller) acquire(ctx context.Context, s *runState) (domain.StageResult, error) {
	in := s.run.Input
	dir := s.workDir()

	r1Path := filepath.Join(dir, naming.StagedReadName(in.FastqR1Ref))
	r2Path := filepath.Join(dir, naming.StagedReadName(in.FastqR2Ref))

	// Риды с одинаковым именем перезаписали бы друг друга
	if r1Path == r2Path {
		return stage.Measure(domain.StageAcquiring, c.clock, func() error {
			return &domain.InvalidInput{
				Field:  "fastq_r2",
				Reason: fmt.Sprintf("stages to the same file as fastq_r1 (%s)", filepath.Base(r1Path)),
			}
		})
	}

	refArchive := c.referenceRef(in.ReferenceGenomeID)
	var bundleDir string

	tasks := []stage.Task{
		stage.FuncTask("R1", func(ctx context.Context) error {
			return c.stageRead(ctx, in.FastqR1Ref, r1Path)
		}),
		stage.FuncTask("R2", func(ctx context.Context) error {
			return c.stageRead(ctx, in.FastqR2Ref, r2Path)
		}),
		stage.FuncTask("reference", func(ctx context.Context) error {
			root, err := c.resolver.FetchArchive(ctx, refArchive, dir)
			if err != nil {
				return &domain.MissingCollaboratorResponse{Collaborator: collaboratorResolver, Ref: refArchive, Err: err}
			}
			bundleDir = root
			return nil
		}),
	}

	var annotation string
	checkAnnotation := func() error {
		annotation = filepath.Join(bundleDir, c.annotation)
		if _, err := os.Stat(annotation); err != nil {
			return &domain.MissingCollaboratorResponse{
				Collaborator: collaboratorResolver,
				Ref:          path.Join(refArchive, c.annotation),
				Err:          err,
			}
		}
		return nil
	}

	res, err := c.fanOut.Run(ctx, domain.StageAcquiring, tasks, checkAnnotation)
	if err != nil {
		return res, err
	}

	s.staged = domain.StagedFiles{
		{Path: r1Path, Role: domain.RoleRawFastqR1},
		{Path: r2Path, Role: domain.RoleRawFastqR2},
		{Path: bundleDir, Role: domain.RoleReferenceIndexBundle},
		{Path: annotation, Role: domain.RoleAnnotationFile},
	}
	s.logger.Debug("inputs staged",
		"fastq_r1", r1Path,
		"fastq_r2", r2Path,
		"genome_dir", bundleDir,
		"annotation", annotation,
	)
	return res, nil
}

// stageRead скачивает FASTQ и, если он сжат, распаковывает его в dst.
func (c *Controller) stageRead(ctx context.Context, ref, dst string) error {
	compression := naming.CompressionOf(ref)
	if compression == naming.CompressionNone {
		if _, err := c.resolver.Fetch(ctx, ref, dst); err != nil {
			return &domain.MissingCollaboratorResponse{Collaborator: collaboratorResolver, Ref: ref, Err: err}
		}
		return nil
	}

	raw := filepath.Join(filepath.Dir(dst), path.Base(ref))
	if _, err := c.resolver.Fetch(ctx, ref, raw); err != nil {
		return &domain.MissingCollaboratorResponse{Collaborator: collaboratorResolver, Ref: ref, Err: err}
	}

	h, err := c.launcher.Launch(ctx, c.decompressCommand(compression, raw, dst))
	if err != nil {
		return err
	}
	if err := h.Wait(); err != nil {
		return err
	}

	// Сжатая копия больше не нужна
	if err := os.Remove(raw); err != nil {
		c.logger.Warn("failed to remove compressed read", "path", raw, "error", err)
	}
	return nil
}

// decompressCommand выбирает распаковщик по формату сжатия.
func (c *Controller) decompressCommand(compression naming.Compression, src, dst string) process.CommandSpec {
	if compression == naming.CompressionBzip2 {
		return c.pbzip2.DecompressCommand(src, dst, c.threads)
	}
	return c.pigz.DecompressCommand(src, dst, c.threads)
}

// --- Aligning ---

// align запускает STAR и находит единственный BAM в рабочей директории.
func (c *Controller) align(ctx context.Context, s *runState) (domain.StageResult, error) {
	spec := c.star.Command(tools.AlignRequest{
		R1:         s.staged.ByRole(domain.RoleRawFastqR1),
		R2:         s.staged.ByRole(domain.RoleRawFastqR2),
		GenomeDir:  s.staged.ByRole(domain.RoleReferenceIndexBundle),
		Annotation: s.staged.ByRole(domain.RoleAnnotationFile),
		Threads:    c.threads,
		Dir:        s.workDir(),
	})

	discover := func() error {
		found, err := Discover(s.workDir(), c.alignmentPattern)
		if err != nil {
			return err
		}
		s.alignment = domain.AlignmentOutput{Path: found}
		return nil
	}

	return c.sequential.Run(ctx, domain.StageAligning, spec, discover)
}

// Discover возвращает единственный файл в dir, подходящий под pattern.
// Ноль или несколько совпадений — *domain.AmbiguousOutput.
func Discover(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}

	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}

	if len(files) != 1 {
		return "", &domain.AmbiguousOutput{Pattern: pattern, Expected: 1, Found: len(files)}
	}
	return files[0], nil
}

// --- Renaming ---

// rename переименовывает BAM по имени подготовленного R1.
func (c *Controller) rename(_ context.Context, s *runState) (domain.StageResult, error) {
	return stage.Measure(domain.StageRenaming, c.clock, func() error {
		source := filepath.Base(s.staged.ByRole(domain.RoleRawFastqR1))

		derived, err := c.namer.DeriveOutputName(source)
		if err != nil {
			return err
		}

		from := s.alignment.Path
		to := filepath.Join(s.workDir(), derived)
		if from != to {
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("rename %s: %w", filepath.Base(from), err)
			}
		}

		s.logger.Info("renamed", "from", filepath.Base(from), "to", derived)
		s.manifest().Artifact = domain.NamedArtifact{Path: to, DerivedName: derived}
		return nil
	})
}

// --- Indexing ---

// index запускает sambamba index и проверяет, что появился <bam>.bai.
func (c *Controller) index(ctx context.Context, s *runState) (domain.StageResult, error) {
	artifact := s.manifest().Artifact.Path
	spec := c.sambamba.IndexCommand(artifact, c.threads)
	spec.Dir = s.workDir()

	checkIndex := func() error {
		indexPath := naming.IndexName(artifact)
		if _, err := os.Stat(indexPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &domain.AmbiguousOutput{Pattern: filepath.Base(indexPath), Expected: 1, Found: 0}
			}
			return err
		}
		s.manifest().Index = domain.IndexFile{Path: indexPath}
		return nil
	}

	return c.sequential.Run(ctx, domain.StageIndexing, spec, checkIndex)
}

// --- Publishing ---

// publish публикует BAM и индекс параллельно под ключами <run-id>/<name>.
func (c *Controller) publish(ctx context.Context, s *runState) (domain.StageResult, error) {
	m := s.manifest()
	prefix := s.run.ID.String()

	var primary, index string
	upload := func(localPath string, handle *string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			key := prefix + "/" + filepath.Base(localPath)
			h, err := c.publisher.Publish(ctx, key, localPath)
			if err != nil {
				return &domain.MissingCollaboratorResponse{Collaborator: collaboratorPublisher, Ref: key, Err: err}
			}
			if h == "" {
				return &domain.MissingCollaboratorResponse{Collaborator: collaboratorPublisher, Ref: key}
			}
			*handle = h
			return nil
		}
	}

	tasks := []stage.Task{
		stage.FuncTask("star_bam", upload(m.Artifact.Path, &primary)),
		stage.FuncTask("star_index", upload(m.Index.Path, &index)),
	}

	res, err := c.fanOut.Run(ctx, domain.StagePublishing, tasks)
	if err != nil {
		return res, err
	}

	m.Published = domain.PublishedArtifacts{Primary: primary, Index: index}
	return res, nil
}

