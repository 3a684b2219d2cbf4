package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const samplePack = `jokes:
  - text: "Why did the coffee file a police report? It got mugged."
    tags: [coffee, drinks]
  - text: "I used to hate facial hair, but then it grew on me."
  - text: "   "
  - text: "Decaf? That's a latte of nothing."
    tags: [Coffee]
`

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jokes.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJokeFile(t *testing.T) {
	jf, err := LoadJokeFile(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if jf.Len() != 3 {
		t.Fatalf("expected blank entry dropped, got %d jokes", jf.Len())
	}
}

func TestLoadJokeFile_Errors(t *testing.T) {
	if _, err := LoadJokeFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadJokeFile(writePack(t, "jokes: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := LoadJokeFile(writePack(t, "jokes: []\n")); err == nil {
		t.Error("expected error for empty pack")
	}
}

func TestJokeFile_Search(t *testing.T) {
	jf, err := LoadJokeFile(writePack(t, samplePack))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, _ := jf.Search(ctx, "COFFEE", 30)
	if len(got) != 2 {
		t.Errorf("expected both coffee jokes by tag, got %v", got)
	}
	got, _ = jf.Search(ctx, "facial hair", 30)
	if len(got) != 1 {
		t.Errorf("expected text match, got %v", got)
	}
	got, _ = jf.Search(ctx, "coffee", 1)
	if len(got) != 1 {
		t.Errorf("expected limit respected, got %v", got)
	}
	got, _ = jf.Search(ctx, "penguins", 30)
	if len(got) != 0 {
		t.Errorf("expected no match, got %v", got)
	}
}

func TestJokeFile_Random(t *testing.T) {
	jf := NewJokeFile([]FileJoke{{Text: "only one"}})
	joke, err := jf.Random(context.Background())
	if err != nil || joke != "only one" {
		t.Fatalf("unexpected %q, %v", joke, err)
	}

	if _, err := NewJokeFile(nil).Random(context.Background()); err == nil {
		t.Fatal("expected error for empty source")
	}
}
