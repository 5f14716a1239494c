package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestFolderFor(t *testing.T) {
	root := filepath.Join("work", "input")
	l := NewContextLoader(root, ContextSettings{}, discardLogger())

	tests := []struct {
		ref  string
		want string
	}{
		{"../input/ebit-calculator.zip", filepath.Join(root, "ebit-calculator")},
		{"  ../input/nested/loan.zip ", filepath.Join(root, "nested", "loan")},
		{"/somewhere/else/velocity.zip", filepath.Join(root, "velocity")},
		{"https://cdn.example.com/files/ebit.zip", filepath.Join(root, "ebit")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.FolderFor(tt.ref), tt.ref)
	}
}

func TestCollectMissingFolder(t *testing.T) {
	l := NewContextLoader(t.TempDir(), ContextSettings{}, discardLogger())
	files, err := l.Collect(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollectAllowList(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":      "alpha",
		"b.MD":       "bravo",
		"c.exe":      "binary",
		"image.png":  "png",
		"sub/d.json": `{"d":1}`,
	})

	l := NewContextLoader(dir, ContextSettings{}, discardLogger())
	files, err := l.Collect(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.MD", "d.json"}, names)
	assert.Equal(t, "alpha", files[0].Text)
}

func TestCollectKeepsTail(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"notes.txt": "héllo wörld"})

	l := NewContextLoader(dir, ContextSettings{MaxChars: 5}, discardLogger())
	files, err := l.Collect(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "wörld", files[0].Text)
}

func TestCollectHTMLToMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"page.html": "<html><body><h1>Title</h1><p>Body text</p></body></html>"})

	plain := NewContextLoader(dir, ContextSettings{}, discardLogger())
	files, err := plain.Collect(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Text, "<h1>")

	converting := NewContextLoader(dir, ContextSettings{HTMLToMarkdown: true}, discardLogger())
	files, err = converting.Collect(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Text, "# Title")
	assert.NotContains(t, files[0].Text, "<h1>")
}

func TestKeepTail(t *testing.T) {
	assert.Equal(t, "abc", keepTail("abc", 5))
	assert.Equal(t, "cde", keepTail("abcde", 3))
	assert.Equal(t, "", keepTail("abc", 0))
}

func TestBuildBlocks(t *testing.T) {
	files := []ContextFile{
		{Name: "manifest.json", Text: `{"results":[{"url":"https://competitor"}]}`},
		{Name: "notes.md", Text: "internal notes"},
	}

	blocks, err := BuildBlocks(files, "Build the EBIT calculator config.")
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Contains(t, blocks[0], "SERP_MANIFEST")
	assert.Contains(t, blocks[0], `{"results":[{"url":"https://competitor"}]}`)

	assert.Contains(t, blocks[1], "named notes.md")
	assert.Contains(t, blocks[1], "internal notes")
	assert.NotContains(t, blocks[1], "SERP")

	assert.True(t, strings.HasPrefix(blocks[2], "Build the EBIT calculator config.\n\n"))
	assert.Contains(t, blocks[2], "`version` field")
}

func TestBuildBlocksPromptOnly(t *testing.T) {
	blocks, err := BuildBlocks(nil, "prompt")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, strings.HasPrefix(blocks[0], "prompt\n\n"))
}
