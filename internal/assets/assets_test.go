package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPrefersLastDir(t *testing.T) {
	base, override := t.TempDir(), t.TempDir()
	writeFile(t, base, "tile.dds", "base")
	writeFile(t, base, "water1.dds", "water")
	writeFile(t, override, "tile.dds", "override")

	m := NewManager()
	defer m.Close()
	for _, d := range []string{base, override} {
		if err := m.AddDir(d); err != nil {
			t.Fatalf("AddDir: %v", err)
		}
	}

	tests := []struct {
		name, want string
	}{
		{"tile.dds", "override"},
		{"water1.dds", "water"},
	}
	for _, tt := range tests {
		data, err := m.Load(tt.name)
		if err != nil {
			t.Fatalf("Load(%s): %v", tt.name, err)
		}
		if string(data) != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, data)
		}
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bricks.dds", "v1")

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}
	m.Load("bricks.dds")
	writeFile(t, dir, "bricks.dds", "v2")

	data, _ := m.Load("bricks.dds")
	if string(data) != "v1" {
		t.Errorf("expected cached v1, got %q", data)
	}
	if hits, misses := m.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}

	m.Evict("bricks.dds")
	data, _ = m.Load("bricks.dds")
	if string(data) != "v2" {
		t.Errorf("expected v2 after evict, got %q", data)
	}
}

func TestLoadFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lantern.tga", "tga")

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}

	name, data, err := m.LoadFirst("lantern.dds", "lantern.tga")
	if err != nil {
		t.Fatalf("LoadFirst: %v", err)
	}
	if name != "lantern.tga" || string(data) != "tga" {
		t.Errorf("expected lantern.tga, got %s (%q)", name, data)
	}

	if _, _, err := m.LoadFirst("roof.dds", "roof.tga"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddDirRejectsMissing(t *testing.T) {
	m := NewManager()
	if err := m.AddDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing dir")
	}
}
