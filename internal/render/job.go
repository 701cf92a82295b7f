package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// Result describes one finished render.
type Result struct {
	// Output is the path of the rendered composite.
	Output string
	// Images is the number of source frames fed to the renderer.
	Images int
	// Elapsed is the subprocess wall time.
	Elapsed time.Duration
}

// Options configures a render job.
type Options struct {
	// Exe is the focus-stack executable path.
	Exe string
	// SourceDir is the camera save directory the frames land in.
	SourceDir string
	// OutputDir receives the finished composites. Defaults to SourceDir.
	OutputDir string
	// Since filters source images by modification time so earlier runs'
	// files are not mixed in.
	Since time.Time

	BatchSize int
	Threads   int
	Quality   int
}

// Job renders the frames of the current run into one composite by
// invoking the external focus-stack executable on a temp-dir copy of the
// source images.
type Job struct {
	opts Options
	bus  events.Bus
	log  *logging.Logger
}

// NewJob builds a job. bus may be nil when no one listens.
func NewJob(opts Options, bus events.Bus, log *logging.Logger) *Job {
	if opts.OutputDir == "" {
		opts.OutputDir = opts.SourceDir
	}
	return &Job{opts: opts, bus: bus, log: log}
}

// Render runs the job. It needs at least two source frames; fewer is an
// error because stacking a single image is meaningless.
func (j *Job) Render(ctx context.Context) (Result, error) {
	sources, err := j.collectSources()
	if err != nil {
		return Result{}, err
	}
	if len(sources) < 2 {
		return Result{}, fmt.Errorf("render: need at least 2 images, found %d in %s", len(sources), j.opts.SourceDir)
	}

	workDir, err := os.MkdirTemp("", "focusstack-render-")
	if err != nil {
		return Result{}, fmt.Errorf("render: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputs := make([]string, 0, len(sources))
	for _, src := range sources {
		dst := filepath.Join(workDir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return Result{}, fmt.Errorf("render: stage %s: %w", filepath.Base(src), err)
		}
		inputs = append(inputs, filepath.Base(src))
	}

	if j.bus != nil {
		j.bus.Publish(events.NewRenderStartedEvent(len(inputs)))
	}
	j.log.Infof("rendering %d frames via %s", len(inputs), j.opts.Exe)

	outName := "output.jpg"
	args := append([]string{}, inputs...)
	args = append(args,
		fmt.Sprintf("--output=%s", outName),
		fmt.Sprintf("--batchsize=%d", j.opts.BatchSize),
		fmt.Sprintf("--threads=%d", j.opts.Threads),
		fmt.Sprintf("--jpgquality=%d", j.opts.Quality),
	)

	start := time.Now()
	cmd := exec.CommandContext(ctx, j.opts.Exe, args...)
	cmd.Dir = workDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("render: focus-stack failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	elapsed := time.Since(start)

	rendered := filepath.Join(workDir, outName)
	if _, err := os.Stat(rendered); err != nil {
		// Some builds name outputs themselves; fall back to the newest
		// file the subprocess left behind.
		rendered, err = newestCreatedAfter(workDir, inputs, start)
		if err != nil {
			return Result{}, fmt.Errorf("render: locate output: %w", err)
		}
	}

	final := filepath.Join(j.opts.OutputDir, fmt.Sprintf("stack_%s.jpg", start.Format("20060102_150405")))
	if err := copyFile(rendered, final); err != nil {
		return Result{}, fmt.Errorf("render: publish output: %w", err)
	}

	j.log.Infof("render finished in %s: %s", elapsed.Round(time.Millisecond), final)
	return Result{Output: final, Images: len(inputs), Elapsed: elapsed}, nil
}

// collectSources lists image files in the source directory modified
// after the run started, oldest first so frame order is preserved.
func (j *Job) collectSources() ([]string, error) {
	entries, err := os.ReadDir(j.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("render: read source dir: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !isSourceImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(j.opts.Since) {
			continue
		}
		found = append(found, candidate{path: filepath.Join(j.opts.SourceDir, e.Name()), mod: info.ModTime()})
	}
	sort.Slice(found, func(a, b int) bool { return found[a].mod.Before(found[b].mod) })

	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}

// sourceExtensions are the formats the camera can be set to save and
// the focus-stack executable accepts as input.
var sourceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func isSourceImage(name string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(name))]
}

// newestCreatedAfter returns the newest file in dir, modified after t,
// that is not one of the staged inputs.
func newestCreatedAfter(dir string, inputs []string, t time.Time) (string, error) {
	staged := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		staged[in] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestMod time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := staged[e.Name()]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(t) {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, e.Name())
			bestMod = info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no output produced in %s", dir)
	}
	return best, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
