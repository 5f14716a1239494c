package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactStore writes extracted configs and raw model output under one
// directory, one file per slug.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the output directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// ConfigPath is where the config for slug is stored.
func (s *ArtifactStore) ConfigPath(slug string) string {
	return filepath.Join(s.dir, slug+".json")
}

// RawOutputPath is where unusable model output for slug is kept for inspection.
func (s *ArtifactStore) RawOutputPath(slug string) string {
	return filepath.Join(s.dir, slug+"_raw_output.txt")
}

// SaveConfig writes config indented with two spaces, replacing any previous artifact.
func (s *ArtifactStore) SaveConfig(slug string, config *Node) (string, error) {
	data, err := config.MarshalIndent()
	if err != nil {
		return "", fmt.Errorf("serializing config: %w", err)
	}
	path := s.ConfigPath(slug)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// SaveRawOutput stores text verbatim.
func (s *ArtifactStore) SaveRawOutput(slug, text string) (string, error) {
	path := s.RawOutputPath(slug)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// LoadConfig reads a previously saved config.
func (s *ArtifactStore) LoadConfig(slug string) (*Node, error) {
	data, err := os.ReadFile(s.ConfigPath(slug))
	if err != nil {
		return nil, err
	}
	return ParseNode(data)
}
