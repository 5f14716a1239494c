package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	defaultContextMaxChars = 20000
	contextZipMarker       = ".zip"
	inputRefPrefix         = "../input/"
	manifestFileName       = "manifest.json"
)

var defaultContextExtensions = []string{
	".txt", ".text", ".md", ".markdown",
	".json", ".html", ".htm",
	".xml", ".yaml", ".yml",
	".pdf",
}

//go:embed config/manifest-context.tmpl
var manifestContextTemplate string

//go:embed config/context-file.tmpl
var contextFileTemplate string

//go:embed config/json-instruction.md
var jsonInstruction string

var (
	manifestTmpl    = template.Must(template.New("manifest").Parse(manifestContextTemplate))
	contextFileTmpl = template.Must(template.New("context-file").Parse(contextFileTemplate))
)

// ContextFile is a supplementary file inlined into the generation call.
type ContextFile struct {
	Path string
	Name string
	Text string
}

// ContextLoader resolves context folders and reads the files inside them.
type ContextLoader struct {
	inputRoot  string
	maxChars   int
	extensions map[string]bool
	converter  *md.Converter
	logger     *slog.Logger
}

// NewContextLoader creates a loader rooted at inputRoot (usually <workdir>/input).
func NewContextLoader(inputRoot string, settings ContextSettings, logger *slog.Logger) *ContextLoader {
	exts := settings.Extensions
	if len(exts) == 0 {
		exts = defaultContextExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	maxChars := settings.MaxChars
	if maxChars <= 0 {
		maxChars = defaultContextMaxChars
	}

	if logger == nil {
		logger = slog.Default()
	}

	l := &ContextLoader{
		inputRoot:  inputRoot,
		maxChars:   maxChars,
		extensions: allowed,
		logger:     logger,
	}
	if settings.HTMLToMarkdown {
		l.converter = md.NewConverter("", true, nil)
	}
	return l
}

// FolderFor maps a packaged-context reference found in a prompt document to
// the folder holding its unpacked files: "../input/xyz.zip" -> <input>/xyz.
// References outside ../input/ keep only their last path element.
func (l *ContextLoader) FolderFor(ref string) string {
	norm := strings.TrimSpace(ref)

	var base string
	if strings.HasPrefix(norm, inputRefPrefix) {
		base = strings.TrimPrefix(norm, inputRefPrefix)
	} else {
		base = filepath.Base(norm)
	}

	name := strings.ReplaceAll(base, contextZipMarker, "")
	return filepath.Join(l.inputRoot, name)
}

// Collect reads every supported file below folder. A missing folder yields
// no files; unreadable files are logged and skipped.
func (l *ContextLoader) Collect(folder string) ([]ContextFile, error) {
	info, err := os.Stat(folder)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		l.logger.Info("context folder not found, no context files added", "folder", folder)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking context folder %s: %w", folder, err)
	}

	var files []ContextFile
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on errors
		}
		if d.IsDir() || !l.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		text, err := l.readFile(path)
		if err != nil {
			l.logger.Warn("could not read context file", "file", path, "error", err)
			return nil
		}
		l.logger.Debug("adding context file", "file", d.Name())
		files = append(files, ContextFile{Path: path, Name: d.Name(), Text: text})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking context folder %s: %w", folder, err)
	}
	return files, nil
}

// readFile loads path as text, dropping invalid UTF-8 and keeping only the
// trailing maxChars characters.
func (l *ContextLoader) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(data), "")

	ext := strings.ToLower(filepath.Ext(path))
	if l.converter != nil && (ext == ".html" || ext == ".htm") {
		markdown, err := l.converter.ConvertString(text)
		if err != nil {
			return "", fmt.Errorf("converting HTML to markdown: %w", err)
		}
		text = markdown
	}

	return keepTail(text, l.maxChars), nil
}

// keepTail returns the last n characters of s.
func keepTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// BuildBlocks wraps each context file and appends the main prompt, which
// goes last so it can refer back to the context.
func BuildBlocks(files []ContextFile, prompt string) ([]string, error) {
	blocks := make([]string, 0, len(files)+1)
	for _, f := range files {
		tmpl := contextFileTmpl
		if f.Name == manifestFileName {
			tmpl = manifestTmpl
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, f); err != nil {
			return nil, fmt.Errorf("wrapping context file %s: %w", f.Name, err)
		}
		blocks = append(blocks, buf.String())
	}

	blocks = append(blocks, prompt+"\n\n"+strings.TrimSpace(jsonInstruction))
	return blocks, nil
}
