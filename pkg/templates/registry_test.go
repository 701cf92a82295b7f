package templates

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 30), uint8(y * 30), 100, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestRegistryLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "ready.png"), 8, 8)
	writeTestPNG(t, filepath.Join(dir, "transfer.png"), 6, 4)

	defs := `templates:
  - name: camera_ready
    path: ready.png
    threshold: 0.9
    region:
      x1: 0
      y1: 0
      x2: 100
      y2: 50
  - name: transfer_complete
    path: transfer.png
    threshold: 0.985
    preload: true
`
	defsPath := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(defsPath, []byte(defs), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}

	registry := NewRegistry(dir)
	if err := registry.LoadFromFile(defsPath); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if !registry.Has("camera_ready") || !registry.Has("transfer_complete") {
		t.Fatalf("registered templates missing, have %v", registry.Names())
	}

	tmpl, _ := registry.Get("camera_ready")
	if tmpl.Threshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", tmpl.Threshold)
	}
	if tmpl.Region == nil || tmpl.Region.X2 != 100 {
		t.Errorf("region not loaded: %+v", tmpl.Region)
	}

	img, resolved, err := registry.Image("camera_ready")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("image bounds = %v, want 8x8", img.Bounds())
	}
	if resolved.Name != "camera_ready" {
		t.Errorf("resolved template name = %q", resolved.Name)
	}
}

func TestRegistryScalesTemplates(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "ready.png"), 10, 10)

	defs := `templates:
  - name: camera_ready
    path: ready.png
    scale: 0.5
`
	defsPath := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(defsPath, []byte(defs), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}

	registry := NewRegistry(dir)
	if err := registry.LoadFromFile(defsPath); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	img, _, err := registry.Image("camera_ready")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 5 {
		t.Errorf("scaled bounds = %v, want 5x5", img.Bounds())
	}
}

func TestRegistryMissingImageSurfacesOnUse(t *testing.T) {
	dir := t.TempDir()
	defs := `templates:
  - name: camera_ready
    path: does_not_exist.png
`
	defsPath := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(defsPath, []byte(defs), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}

	registry := NewRegistry(dir)
	if err := registry.LoadFromFile(defsPath); err != nil {
		t.Fatalf("LoadFromFile should defer missing images without preload: %v", err)
	}
	if _, _, err := registry.Image("camera_ready"); err == nil {
		t.Fatal("expected an error resolving a missing image file")
	}
}

func TestRegistryRejectsUnnamedTemplates(t *testing.T) {
	dir := t.TempDir()
	defsPath := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(defsPath, []byte("templates:\n  - path: x.png\n"), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}
	registry := NewRegistry(dir)
	if err := registry.LoadFromFile(defsPath); err == nil {
		t.Fatal("expected an error for a template without a name")
	}
}
