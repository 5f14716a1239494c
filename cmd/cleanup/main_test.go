package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFindPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty-one", "manifest.json"), `{"results":[]}`)
	writeFile(t, filepath.Join(dir, "with-results", "manifest.json"), `{"results":[{"url":"x"}]}`)
	writeFile(t, filepath.Join(dir, "extra-file", "manifest.json"), `{"results":[]}`)
	writeFile(t, filepath.Join(dir, "extra-file", "notes.md"), "notes")
	writeFile(t, filepath.Join(dir, "no-results-key", "manifest.json"), `{}`)

	got, err := findPlaceholders(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "empty-one")}, got)
}

func TestFindStaleRawOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "done_raw_output.txt"), "junk")
	writeFile(t, filepath.Join(dir, "done.json"), "{}")
	writeFile(t, filepath.Join(dir, "pending_raw_output.txt"), "junk")

	got, err := findStaleRawOutputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "done_raw_output.txt")}, got)
}

func TestConfirmDelete(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"\n", false},
		{"n\n", false},
		{"maybe\ny\n", true},
		{"", false},
	}

	for _, tt := range tests {
		reader := bufio.NewReader(strings.NewReader(tt.input))
		if got := confirmDelete(reader, "/tmp/x"); got != tt.want {
			t.Errorf("confirmDelete(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRemoveRawOutputsHonorsAnswer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_raw_output.txt"), "junk")
	writeFile(t, filepath.Join(dir, "a.json"), "{}")
	writeFile(t, filepath.Join(dir, "b_raw_output.txt"), "junk")
	writeFile(t, filepath.Join(dir, "b.json"), "{}")

	reader := bufio.NewReader(strings.NewReader("y\nn\n"))
	require.NoError(t, removeRawOutputs(dir, reader))

	assert.NoFileExists(t, filepath.Join(dir, "a_raw_output.txt"))
	assert.FileExists(t, filepath.Join(dir, "b_raw_output.txt"))
}
