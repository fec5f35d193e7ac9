package emu

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// findImages recursively collects .bin boot images under dir.
func findImages(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".bin") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// runImage boots a test image and waits for it to report on the TTY.
func runImage(t *testing.T, path string, maxFrames int) {
	t.Helper()
	bios, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	m, err := New(Config{BIOS: bios})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	var buf bytes.Buffer
	m.SetSerialWriter(&buf)

	for i := 0; i < maxFrames; i++ {
		m.Run(frameCycles)
		out := strings.ToLower(buf.String())
		if strings.Contains(out, "passed") {
			return
		}
		if strings.Contains(out, "failed") {
			t.Fatalf("%s reported failure:\n%s", filepath.Base(path), buf.String())
		}
	}
	t.Fatalf("timeout waiting for 'Passed' from %s; last output:\n%s", filepath.Base(path), buf.String())
}

// TestBootImages runs every image under TESTBIOS_DIR. Opt-in, as the images
// are not part of the repository.
func TestBootImages(t *testing.T) {
	base := os.Getenv("TESTBIOS_DIR")
	if base == "" {
		t.Skip("set TESTBIOS_DIR to a directory of .bin test images to run")
	}
	images, err := findImages(base)
	if err != nil {
		t.Fatalf("scan images: %v", err)
	}
	if len(images) == 0 {
		t.Skipf("no images found in %s", base)
	}

	maxFrames := 600
	if v := os.Getenv("TESTBIOS_MAX_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxFrames = n
		}
	}
	for _, img := range images {
		name := strings.TrimSuffix(filepath.Base(img), filepath.Ext(img))
		t.Run(name, func(t *testing.T) { runImage(t, img, maxFrames) })
	}
}

func TestDemoBIOSPassesItsOwnCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.bin")
	if err := os.WriteFile(path, DemoBIOS(), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	runImage(t, path, 2)
}
