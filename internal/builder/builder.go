package builder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"easylabwork/internal/config"
	"easylabwork/internal/processor"
	"easylabwork/internal/render"
	"easylabwork/internal/types"
	"easylabwork/internal/watcher"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSourceMissing is returned when the source root does not exist
	ErrSourceMissing = errors.New("source does not exist")
	// ErrTargetExists is returned when the target root is already present.
	// A build never writes into an existing tree.
	ErrTargetExists = errors.New("target already exists")
)

// Outcome says what happened to a single source file
type Outcome int

const (
	Cleaned Outcome = iota
	Copied
	Skipped
)

// Summary counts what a build did
type Summary struct {
	Cleaned int
	Copied  int
	Skipped int
	Failed  int
	Stats   processor.Stats
}

// Builder mirrors a source tree into a target tree, cleaning every text file
type Builder struct {
	config    config.Config
	processor *processor.Processor
	markdown  *render.Markdown

	mu      sync.Mutex
	summary Summary
}

// New creates a new Builder instance
func New(cfg config.Config) *Builder {
	b := &Builder{
		config:    cfg,
		processor: processor.New(cfg.Markers, cfg.Verbose),
	}
	if cfg.RenderMarkdown {
		b.markdown = render.NewMarkdown()
	}
	return b
}

// Summary returns the counts of the last build
func (b *Builder) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

// fileJob is one regular file to clean or copy
type fileJob struct {
	src string
	dst string
	rel string
}

// Build performs the main build process. Documents that fail are reported
// together in the returned error; nothing is written for them.
func (b *Builder) Build(ctx context.Context) error {
	source := b.config.GetAbsoluteInputDir()
	target := b.config.GetAbsoluteOutputDir()

	b.mu.Lock()
	b.summary = Summary{}
	b.mu.Unlock()

	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, source)
		}
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if !info.IsDir() {
		return b.buildSingle(source, target)
	}
	if strings.HasPrefix(target, source+string(filepath.Separator)) {
		return fmt.Errorf("target %s is inside source %s", target, source)
	}

	if b.config.Verbose {
		green := color.New(color.FgGreen)
		fmt.Printf("Loading %s files...\n", green.Sprint("lab"))
	}

	jobs, err := b.getFileList(source, target)
	if err != nil {
		return fmt.Errorf("cannot get file list: %w", err)
	}

	if err := b.runJobs(ctx, jobs); err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	fmt.Printf("%s from %s to %s\n",
		green.Sprint("Cleaned"), cyan.Sprint(source), cyan.Sprint(target))
	if !b.config.Watch {
		fmt.Printf("%s\n", green.Sprint("Success!"))
	}
	return nil
}

func (b *Builder) buildSingle(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	job := fileJob{src: source, dst: target, rel: filepath.Base(source)}
	if err := b.record(b.processFile(job)); err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	fmt.Printf("%s %s to %s\n", green.Sprint("Cleaned"), cyan.Sprint(source), cyan.Sprint(target))
	return nil
}

// getFileList walks sourceDir, creates the mirrored directories under
// targetDir and returns a job per regular file
func (b *Builder) getFileList(sourceDir, targetDir string) ([]fileJob, error) {
	var jobs []fileJob

	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		if rel != "." && b.excluded(rel) {
			if b.config.Verbose {
				fmt.Printf("  Excluded %s\n", rel)
			}
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			dst := filepath.Join(targetDir, rel)
			if err := os.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("creating directory %s: %w", dst, err)
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			if b.config.Verbose {
				log.Printf("Warning: skipping %s, not a regular file", rel)
			}
			b.record(Skipped, processor.Stats{}, nil)
			return nil
		}

		jobs = append(jobs, fileJob{
			src: path,
			dst: filepath.Join(targetDir, rel),
			rel: rel,
		})
		return nil
	})

	return jobs, err
}

// excluded reports whether rel, or its base name, matches an exclude pattern
func (b *Builder) excluded(rel string) bool {
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, pattern := range b.config.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// runJobs processes jobs on at most config.Jobs workers
func (b *Builder) runJobs(ctx context.Context, jobs []fileJob) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.config.Jobs, 1))

	var mu sync.Mutex
	var failures []error

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := b.record(b.processFile(job))
			if err == nil {
				return nil
			}
			if b.config.FailFast {
				return err
			}
			red := color.New(color.FgRed)
			log.Printf("%s %v", red.Sprint("Error:"), err)
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failures), len(jobs), errors.Join(failures...))
	}
	return nil
}

func (b *Builder) record(outcome Outcome, stats processor.Stats, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.summary.Failed++
		return err
	}
	switch outcome {
	case Cleaned:
		b.summary.Cleaned++
		b.summary.Stats.Add(stats)
	case Copied:
		b.summary.Copied++
	case Skipped:
		b.summary.Skipped++
	}
	return nil
}

// processFile cleans one text file into its destination, or copies it
// byte for byte when it is not text. The output is only written once the
// whole document has been cleaned.
func (b *Builder) processFile(job fileJob) (Outcome, processor.Stats, error) {
	fileInfo := types.NewFileInfo(job.src)

	if err := fileInfo.Load(); err != nil {
		if !errors.Is(err, types.ErrNotText) {
			return 0, processor.Stats{}, fmt.Errorf("reading %s: %w", job.rel, err)
		}
		if err := fileInfo.CopyTo(job.dst); err != nil {
			return 0, processor.Stats{}, fmt.Errorf("copying %s: %w", job.rel, err)
		}
		if b.config.Verbose {
			cyan := color.New(color.FgCyan)
			fmt.Printf("  Copied %s\n", cyan.Sprint(job.rel))
		}
		return Copied, processor.Stats{}, nil
	}

	doc, stats, err := b.processor.Clean(job.rel, fileInfo.Doc)
	if err != nil {
		return 0, processor.Stats{}, fmt.Errorf("%s: %w", job.rel, err)
	}

	if err := fileInfo.WriteDocument(job.dst, doc); err != nil {
		return 0, processor.Stats{}, fmt.Errorf("writing %s: %w", job.dst, err)
	}

	if b.markdown != nil && fileInfo.IsMarkdown() {
		if err := b.renderMarkdown(job, doc); err != nil {
			return 0, processor.Stats{}, err
		}
	}

	return Cleaned, stats, nil
}

func (b *Builder) renderMarkdown(job fileJob, doc *types.Document) error {
	// A source page of the same name wins over the rendered hand-out
	if _, err := os.Stat(render.HTMLPath(job.src)); err == nil {
		log.Printf("Warning: not rendering %s, %s exists in the source tree",
			job.rel, filepath.Base(render.HTMLPath(job.src)))
		return nil
	}

	title := strings.TrimSuffix(filepath.Base(job.rel), filepath.Ext(job.rel))
	page, err := b.markdown.Render(title, []byte(doc.String()))
	if err != nil {
		return fmt.Errorf("%s: %w", job.rel, err)
	}
	dst := render.HTMLPath(job.dst)
	if err := os.WriteFile(dst, page, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// Watch re-processes source files into the existing target tree as they
// change, until ctx is cancelled. Build must have succeeded first.
func (b *Builder) Watch(ctx context.Context) error {
	source := b.config.GetAbsoluteInputDir()
	target := b.config.GetAbsoluteOutputDir()

	if info, err := os.Stat(source); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("watching needs a source directory, %s is a file", source)
	}

	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	fmt.Printf("%s is watching files in %s\n\n", green.Sprint("easylabwork"), cyan.Sprint(source))

	w, err := watcher.New(source, watcher.DefaultDebounce, func(path string) {
		if err := b.Rebuild(source, target, path); err != nil {
			log.Printf("Build error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot create file watcher: %w", err)
	}
	defer w.Close()

	fmt.Printf("%s\n", color.New(color.FgYellow).Sprint("Press Ctrl+C to stop watching"))
	<-ctx.Done()

	fmt.Printf("\n%s\n", color.New(color.FgGreen).Sprint("Stopping file watcher..."))
	return nil
}

// Rebuild re-processes a single changed file below sourceDir into targetDir,
// overwriting its previous output
func (b *Builder) Rebuild(sourceDir, targetDir, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		// removed again before the debounce fired
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	rel, err := filepath.Rel(sourceDir, path)
	if err != nil {
		return err
	}
	if strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s is outside %s", path, sourceDir)
	}
	for dir := rel; dir != "."; dir = filepath.Dir(dir) {
		if b.excluded(dir) {
			return nil
		}
	}

	job := fileJob{src: path, dst: filepath.Join(targetDir, rel), rel: rel}
	if err := os.MkdirAll(filepath.Dir(job.dst), 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(job.dst), err)
	}

	outcome, _, err := b.processFile(job)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	verb := "Cleaned"
	if outcome == Copied {
		verb = "Copied"
	}
	fmt.Printf("  %s %s\n", verb, cyan.Sprint(rel))
	return nil
}
