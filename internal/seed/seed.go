// Package seed supplies the fixed set of activities the catalog starts with.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/activities/internal/domain"
)

//go:embed activities.yaml
var defaultActivities []byte

type file struct {
	Activities []activity `yaml:"activities"`
}

type activity struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// Default returns the built-in school activity list.
func Default() ([]domain.Seed, error) {
	return decode(bytes.NewReader(defaultActivities))
}

// Load reads seeds from a YAML file on disk.
func Load(path string) ([]domain.Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seeds, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seeds, nil
}

// FromConfig loads path when set and falls back to Default otherwise.
func FromConfig(path string) ([]domain.Seed, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return Load(path)
}

func decode(r io.Reader) ([]domain.Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed document is empty")
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(doc.Activities) == 0 {
		return nil, errors.New("seed document lists no activities")
	}

	seeds := make([]domain.Seed, 0, len(doc.Activities))
	for _, a := range doc.Activities {
		seeds = append(seeds, domain.Seed{
			Name:            a.Name,
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    append([]string(nil), a.Participants...),
		})
	}
	return seeds, nil
}
