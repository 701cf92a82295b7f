package templates

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/M-Enderle/FocusStack/internal/cv"
)

// Registry manages the reference templates used for screen-state
// detection, loaded from YAML definition files.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]cv.Template
	basePath string
	cache    *ImageCache
}

// Definition is one template entry in a YAML file.
type Definition struct {
	Name      string     `yaml:"name"`
	Path      string     `yaml:"path"`
	Threshold float64    `yaml:"threshold"`
	Region    *RegionDef `yaml:"region,omitempty"`
	Scale     float64    `yaml:"scale,omitempty"`
	Preload   bool       `yaml:"preload,omitempty"`
}

// RegionDef restricts a template's search area.
type RegionDef struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// File is the top-level YAML document shape.
type File struct {
	Templates []Definition `yaml:"templates"`
}

// NewRegistry creates a registry rooted at basePath, where the template
// image files live.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		entries:  make(map[string]cv.Template),
		basePath: basePath,
		cache:    NewImageCache(),
	}
}

// LoadFromFile reads template definitions from one YAML file.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse template file %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, def := range file.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d in %s: name is required", i+1, path)
		}
		if def.Path == "" {
			return fmt.Errorf("template %q in %s: path is required", def.Name, path)
		}

		tmpl := cv.Template{
			Name:      def.Name,
			Path:      filepath.Join(r.basePath, def.Path),
			Threshold: def.Threshold,
			Scale:     def.Scale,
		}
		if def.Region != nil {
			tmpl.Region = &cv.Region{X1: def.Region.X1, Y1: def.Region.Y1, X2: def.Region.X2, Y2: def.Region.Y2}
		}

		r.entries[def.Name] = tmpl
		if err := r.cache.Register(tmpl, def.Preload); err != nil {
			return fmt.Errorf("preload template %q: %w", def.Name, err)
		}
	}
	return nil
}

// LoadFromDirectory loads every YAML file in a directory.
func (r *Registry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if err := r.LoadFromFile(filepath.Join(dir, name)); err != nil {
			return err
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no template definition files in %s", dir)
	}
	return nil
}

// Get returns a template definition by name.
func (r *Registry) Get(name string) (cv.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.entries[name]
	return tmpl, ok
}

// Has reports whether a template is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns all registered template names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Image returns the decoded (and, if configured, scaled) image for a
// template. Implements cv.TemplateSource.
func (r *Registry) Image(name string) (*image.RGBA, cv.Template, error) {
	return r.cache.Get(name)
}

// UnloadAll drops every cached image.
func (r *Registry) UnloadAll() {
	r.cache.UnloadAll()
}

var _ cv.TemplateSource = (*Registry)(nil)
