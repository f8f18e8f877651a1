package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Retrieval.Extended {
		t.Error("extended retrieval should default on")
	}
	if cfg.Retrieval.MaxMS != 8000 {
		t.Errorf("MaxMS = %d, want 8000", cfg.Retrieval.MaxMS)
	}
	if cfg.Gate.MinLocalHits != 3 || cfg.Gate.MinPassageChars != 200 {
		t.Errorf("gate defaults = %+v", cfg.Gate)
	}
	if cfg.Search.MaxQueries != 3 {
		t.Errorf("MaxQueries = %d, want 3", cfg.Search.MaxQueries)
	}
	if cfg.Fetch.MaxPages != 6 || cfg.Fetch.MaxWebPassages != 16 {
		t.Errorf("fetch defaults = %+v", cfg.Fetch)
	}
	if cfg.Merge.MaxContextChars != 6000 {
		t.Errorf("MaxContextChars = %d, want 6000", cfg.Merge.MaxContextChars)
	}
	if cfg.LLM.Enabled {
		t.Error("llm should default off")
	}
}

func TestBudget(t *testing.T) {
	cfg := DefaultConfig()
	b := cfg.Budget()

	if b.MaxQueries != 3 || b.MaxPages != 6 || b.MaxMS != 8000 ||
		b.MaxWebPassages != 16 || b.MaxContextChars != 6000 {
		t.Errorf("budget = %+v", b)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.MaxQueries != 3 {
		t.Errorf("missing file should yield defaults, got %+v", cfg.Search)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grounder.yaml")
	content := `
search:
  max_queries: 5
gate:
  min_local_hits: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.MaxQueries != 5 {
		t.Errorf("MaxQueries = %d, want 5", cfg.Search.MaxQueries)
	}
	if cfg.Gate.MinLocalHits != 1 {
		t.Errorf("MinLocalHits = %d, want 1", cfg.Gate.MinLocalHits)
	}
	// Untouched sections keep defaults.
	if cfg.Fetch.MaxPages != 6 {
		t.Errorf("MaxPages = %d, want default 6", cfg.Fetch.MaxPages)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grounder.yaml")

	cfg := DefaultConfig()
	cfg.Search.MaxQueries = 7
	cfg.Planner.AnchorTerms = []string{"acme", "globex"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Search.MaxQueries != 7 {
		t.Errorf("MaxQueries = %d, want 7", loaded.Search.MaxQueries)
	}
	if len(loaded.Planner.AnchorTerms) != 2 {
		t.Errorf("AnchorTerms = %v", loaded.Planner.AnchorTerms)
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	// No config anywhere: defaults.
	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if cfg.Search.MaxQueries != 3 {
		t.Errorf("expected defaults, got %+v", cfg.Search)
	}

	// grounder.yaml takes effect.
	content := "search:\n  max_queries: 9\n"
	if err := os.WriteFile(filepath.Join(dir, "grounder.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err = LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}
	if cfg.Search.MaxQueries != 9 {
		t.Errorf("MaxQueries = %d, want 9", cfg.Search.MaxQueries)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.APIKeyEnv = "GROUNDER_TEST_SEARCH_KEY"
	t.Setenv("GROUNDER_TEST_SEARCH_KEY", "sk-test")

	if got := cfg.SearchAPIKey(); got != "sk-test" {
		t.Errorf("SearchAPIKey = %q", got)
	}

	cfg.Search.APIKeyEnv = ""
	if got := cfg.SearchAPIKey(); got != "" {
		t.Errorf("empty env name should resolve to empty key, got %q", got)
	}
}
