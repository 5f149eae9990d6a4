package ingest

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile lists the terms and knowledge-graph classes to synchronize.
type SeedFile struct {
	Lexical []SeedSet    `yaml:"lexical"`
	Graph   []GraphClass `yaml:"graph"`
}

// SeedSet is a named list of seed terms sharing a domain.
type SeedSet struct {
	Name   string   `yaml:"name"`
	Domain string   `yaml:"domain"`
	Terms  []string `yaml:"terms"`
}

// GraphClass is a knowledge-graph class whose subclasses become terms.
type GraphClass struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	Domain string `yaml:"domain"`
}

var reQID = regexp.MustCompile(`^Q\d+$`)

// LoadSeeds reads a seed file from path.
func LoadSeeds(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()
	return ParseSeeds(f)
}

// ParseSeeds decodes and validates a seed file. Sets without a domain use
// their name as domain.
func ParseSeeds(r io.Reader) (*SeedFile, error) {
	var sf SeedFile
	if err := yaml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode seeds: %w", err)
	}

	names := map[string]bool{}
	for i := range sf.Lexical {
		s := &sf.Lexical[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("seed set %d has no name", i)
		}
		if names[s.Name] {
			return nil, fmt.Errorf("duplicate seed set %q", s.Name)
		}
		names[s.Name] = true
		if s.Domain == "" {
			s.Domain = s.Name
		}
		terms := s.Terms[:0]
		for _, t := range s.Terms {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		s.Terms = terms
	}
	for i, c := range sf.Graph {
		if !reQID.MatchString(c.ID) {
			return nil, fmt.Errorf("graph class %d: invalid id %q", i, c.ID)
		}
		if c.Domain == "" {
			sf.Graph[i].Domain = "archival"
		}
	}
	return &sf, nil
}

// Set returns the seed set with the given name.
func (s *SeedFile) Set(name string) (SeedSet, bool) {
	for _, set := range s.Lexical {
		if set.Name == name {
			return set, true
		}
	}
	return SeedSet{}, false
}

// SetNames lists the seed set names in file order.
func (s *SeedFile) SetNames() []string {
	names := make([]string, len(s.Lexical))
	for i, set := range s.Lexical {
		names[i] = set.Name
	}
	return names
}
