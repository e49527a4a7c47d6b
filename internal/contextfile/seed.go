package contextfile

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the top-level structure of a document seed YAML file.
//
// Example:
//
//	character:
//	  name: "Lyra Dawnwhisper"
//	  class: "Rogue"
//	  background: "Criminal"
//	documents:
//	  - id: tavern_rumours
//	    content: "# Rumours\n\nA wolf pack stalks the river road."
//	    tags: [quests, exploration]
//	    priority: 6
type SeedFile struct {
	Character SeedCharacter `yaml:"character"`
	Documents []Document    `yaml:"documents"`
}

// SeedCharacter selects the canonical starter documents. When Name is empty
// no starter documents are created.
type SeedCharacter struct {
	Name       string `yaml:"name"`
	Class      string `yaml:"class"`
	Background string `yaml:"background"`
}

// LoadSeedFile reads and parses a seed YAML file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("contextfile: open seed file %q: %w", path, err)
	}
	defer f.Close()

	sf, err := LoadSeedFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("contextfile: parse seed file %q: %w", path, err)
	}
	return sf, nil
}

// LoadSeedFromReader parses seed YAML from r.
func LoadSeedFromReader(r io.Reader) (*SeedFile, error) {
	var sf SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("contextfile: decode seed yaml: %w", err)
	}
	return &sf, nil
}

// ApplySeed creates the starter documents for seed.Character (if named) and
// then puts every seed document, later ones overriding earlier ones. It
// returns the number of documents written.
func ApplySeed(ctx context.Context, store *Store, seed *SeedFile) (int, error) {
	if seed == nil {
		return 0, fmt.Errorf("contextfile: seed must not be nil")
	}
	n := 0
	if seed.Character.Name != "" {
		if err := store.InitializeDefaults(ctx, seed.Character.Name, seed.Character.Class, seed.Character.Background); err != nil {
			return 0, fmt.Errorf("contextfile: apply seed: %w", err)
		}
		n += 6
	}
	for i, d := range seed.Documents {
		if d.Priority == 0 {
			d.Priority = DefaultPriority
		}
		if err := store.Put(ctx, d); err != nil {
			return n, fmt.Errorf("contextfile: apply seed documents[%d]: %w", i, err)
		}
		n++
	}
	return n, nil
}
