package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

// testEnv writes a config that stores documents as files under a temp dir
// and returns the persistent flags pointing at it.
func testEnv(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	cfg := "storage:\n  backend: file\n  path: " + filepath.Join(dir, "kv") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return []string{"--config", path, "--env-file", filepath.Join(dir, "missing.env")}
}

func execute(t *testing.T, flags []string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, flags...))
	if err := root.Execute(); err != nil {
		t.Fatalf("dmctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestInitAndFiles(t *testing.T) {
	env := testEnv(t)
	out := execute(t, env, "init", "--name", "Thorin", "--class", "Paladin")
	if !strings.Contains(out, "Thorin the Paladin") {
		t.Errorf("init output = %q", out)
	}

	files := execute(t, env, "files")
	for _, id := range []string{contextfile.CharacterSheetID, contextfile.QuestLogID} {
		if !strings.Contains(files, id) {
			t.Errorf("files output missing %q:\n%s", id, files)
		}
	}
	tagged := execute(t, env, "files", "--tag", "spells")
	if !strings.Contains(tagged, contextfile.SpellBookID) || strings.Contains(tagged, contextfile.QuestLogID) {
		t.Errorf("files --tag spells = %s", tagged)
	}

	md := execute(t, env, "export", "--id", contextfile.CharacterSheetID)
	if !strings.Contains(md, "Thorin") {
		t.Errorf("exported sheet = %q", md)
	}
}

func TestSeedExportImport(t *testing.T) {
	env := testEnv(t)
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seed, []byte("documents:\n  - id: rumours\n    content: \"# Rumours\"\n    tags: [quests]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if out := execute(t, env, "seed", seed); !strings.Contains(out, "1 documents") {
		t.Errorf("seed output = %q", out)
	}

	bundle := filepath.Join(dir, "bundle.json")
	execute(t, env, "export", "-o", bundle)
	raw, err := os.ReadFile(bundle)
	if err != nil {
		t.Fatal(err)
	}
	var b contextfile.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if len(b.ContextFiles) != 1 || b.ContextFiles[0].ID != "rumours" {
		t.Fatalf("bundle files = %+v", b.ContextFiles)
	}

	other := testEnv(t)
	if out := execute(t, other, "import", bundle); !strings.Contains(out, "Imported 1 documents") {
		t.Errorf("import output = %q", out)
	}
	if files := execute(t, other, "files"); !strings.Contains(files, "rumours") {
		t.Errorf("imported files = %s", files)
	}
}

func TestClassify(t *testing.T) {
	var ext classify.Extraction
	out := execute(t, testEnv(t), "classify", "I", "attack", "the", "goblin")
	if err := json.Unmarshal([]byte(out), &ext); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if ext.ActionType != classify.ActionCombat {
		t.Errorf("ActionType = %q, want combat", ext.ActionType)
	}
}

func TestContext(t *testing.T) {
	env := testEnv(t)
	execute(t, env, "init", "--name", "Mira")
	prompt := execute(t, env, "context", "I cast a spell", "--history", "Player: I enter the cave")
	if !strings.Contains(prompt, "Mira") {
		t.Errorf("system prompt missing character name:\n%s", prompt)
	}
	if !strings.Contains(prompt, "cave") {
		t.Errorf("system prompt missing location:\n%s", prompt)
	}
}

func TestRollAndVersion(t *testing.T) {
	if out := execute(t, nil, "roll", "1d1+2"); !strings.Contains(out, "= 3") {
		t.Errorf("roll output = %q", out)
	}
	if out := execute(t, nil, "version"); strings.TrimSpace(out) != version {
		t.Errorf("version output = %q", out)
	}
}
