package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
		dir, err := cacheDir()
		if err != nil {
			t.Fatalf("cacheDir() error: %v", err)
		}
		if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		dir, err := cacheDir()
		if err != nil {
			t.Fatalf("cacheDir() error: %v", err)
		}
		home, _ := os.UserHomeDir()
		if want := filepath.Join(home, ".cache", appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})
}

func TestNewCacheDisabled(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c, err := newCache(true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Set(t.Context(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(t.Context(), "k"); ok {
		t.Error("disabled cache returned a hit")
	}
}

func TestCachePath(t *testing.T) {
	setup(t)
	stdout, _, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName, documentsDir)
	if strings.TrimSpace(stdout) != want {
		t.Errorf("cache path = %q, want %q", stdout, want)
	}
}

func TestCacheClear(t *testing.T) {
	path := setup(t)

	stdout, _, err := run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("clear empty cache: %v", err)
	}
	if !strings.Contains(stdout, "empty") {
		t.Errorf("output = %q", stdout)
	}

	for _, id := range []string{"p1", "t1"} {
		if _, _, err := run(t, "serialize", path, "--id", id); err != nil {
			t.Fatalf("serialize %s: %v", id, err)
		}
	}
	stdout, _, err = run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(stdout, "Cleared 2") {
		t.Errorf("output = %q", stdout)
	}

	_, stderr, err := run(t, "serialize", path, "--id", "p1", "-o", filepath.Join(t.TempDir(), "out.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stderr, iconCached) {
		t.Error("entry survived cache clear")
	}
}
