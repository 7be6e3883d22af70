package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

const testDoc = `{
  "types": {
    "Project": {"views": {"public": ["id", "name", "tasks"], "ui": ["name"]}},
    "Task": {"views": {"public": ["id", "name", "project"]}}
  },
  "nodes": [
    {"id": "p1", "type": "Project", "props": {"name": "Apollo", "tasks": [{"$ref": "t1"}, {"$ref": "t2"}]}},
    {"id": "t1", "type": "Task", "props": {"name": "Design", "project": {"$ref": "p1"}}},
    {"id": "t2", "type": "Task", "props": {"name": "Build", "project": {"$ref": "p1"}}}
  ]
}`

// setup writes the test document and points the cache at a temporary
// directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("GRAPHWRITER_REDIS_ADDR", "")
	path := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(path, []byte(testDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func decodeDoc(t *testing.T, data string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return doc
}

func TestRootCommand(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	want := []string{"cache", "completion", "serialize", "serve", "views"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestSerializeCollection(t *testing.T) {
	path := setup(t)
	stdout, _, err := run(t, "serialize", path, "--type", "Task", "--page-size", "1", "--page", "2", "--no-cache")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	doc := decodeDoc(t, stdout)
	result, ok := doc["result"].([]any)
	if !ok || len(result) != 1 {
		t.Fatalf("result = %v", doc["result"])
	}
	// Sorted by name: Build, Design.
	if name := result[0].(map[string]any)["name"]; name != "Design" {
		t.Errorf("page 2 = %v, want Design", name)
	}
	if doc["page_count"] != float64(2) {
		t.Errorf("page_count = %v", doc["page_count"])
	}
}

func TestSerializeSingle(t *testing.T) {
	path := setup(t)
	stdout, _, err := run(t, "serialize", path, "--id", "p1", "--view", "ui", "--no-cache")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	result := decodeDoc(t, stdout)["result"].(map[string]any)
	if len(result) != 1 || result["name"] != "Apollo" {
		t.Errorf("result = %v", result)
	}
}

func TestSerializeOutputAndCache(t *testing.T) {
	path := setup(t)
	out := filepath.Join(t.TempDir(), "out.json")

	_, stderr, err := run(t, "serialize", path, "--id", "t1", "-o", out)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if strings.Contains(stderr, iconCached) {
		t.Errorf("first run reported a cache hit: %s", stderr)
	}
	first, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	_, stderr, err = run(t, "serialize", path, "--id", "t1", "-o", out)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stderr, iconCached) {
		t.Errorf("second run should be served from cache: %s", stderr)
	}
	second, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("cached document differs:\n%s\n%s", first, second)
	}
}

func TestSerializeFormat(t *testing.T) {
	path := setup(t)
	stdout, _, err := run(t, "serialize", path, "--id", "t2", "-f", "extjson", "--no-cache")
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(stdout, `"Build"`) {
		t.Errorf("output = %s", stdout)
	}
}

func TestSerializeErrors(t *testing.T) {
	path := setup(t)
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"unknown id", []string{"--id", "nope"}, errors.ErrCodeNotFound},
		{"type mismatch", []string{"--id", "p1", "--type", "Task"}, errors.ErrCodeNotFound},
		{"bad format", []string{"-f", "xml"}, errors.ErrCodeInvalidFormat},
		{"negative depth", []string{"--depth=-1"}, errors.ErrCodeInvalidInput},
		{"bad order", []string{"--order", "up"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"serialize", path, "--no-cache"}, tt.args...)
			_, _, err := run(t, args...)
			if !errors.Has(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSerializeMissingFile(t *testing.T) {
	setup(t)
	_, _, err := run(t, "serialize", filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestInvalidPaths(t *testing.T) {
	path := setup(t)
	tests := []struct {
		name string
		args []string
	}{
		{"serialize input", []string{"serialize", "graph\x01.json"}},
		{"serve input", []string{"serve", "graph\x01.json"}},
		{"views input", []string{"views", "graph\x01.json"}},
		{"output", []string{"serialize", path, "--no-cache", "-o", "out\x00.json"}},
		{"config", []string{"serialize", path, "--no-cache", "--config", "cfg\x00.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if !errors.Has(err, errors.ErrCodeInvalidPath) {
				t.Errorf("err = %v, want INVALID_PATH", err)
			}
		})
	}
}

func TestViews(t *testing.T) {
	path := setup(t)
	stdout, _, err := run(t, "views", path)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	for _, want := range []string{"Project", "Task", "public", "ui", "id, name, tasks", "(2 nodes)", "serialize"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCompletion(t *testing.T) {
	stdout, _, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(stdout, appName) {
		t.Error("completion script does not mention the command")
	}
}
