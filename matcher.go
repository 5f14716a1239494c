package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	defaultSimilarityThreshold = 0.65
	defaultSubstringBonus      = 0.1
	placeholderManifest        = `{"results":[]}`
)

// PromptMatcher finds the generated prompt file that belongs to a slug.
type PromptMatcher struct {
	promptsDir string
	inputDir   string
	threshold  float64
	bonus      float64
	logger     *slog.Logger
}

// NewPromptMatcher creates a matcher over promptsDir. Matched slugs get a
// companion folder under inputDir.
func NewPromptMatcher(promptsDir, inputDir string, matching MatchingSettings, logger *slog.Logger) *PromptMatcher {
	threshold := defaultSimilarityThreshold
	if matching.SimilarityThreshold != nil {
		threshold = *matching.SimilarityThreshold
	}
	bonus := defaultSubstringBonus
	if matching.SubstringBonus != nil {
		bonus = *matching.SubstringBonus
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptMatcher{
		promptsDir: promptsDir,
		inputDir:   inputDir,
		threshold:  threshold,
		bonus:      bonus,
		logger:     logger,
	}
}

// scoredPrompt pairs a candidate prompt file with its similarity score
type scoredPrompt struct {
	path  string
	score float64
}

// Resolve picks the prompt file for slug using the row's category and
// subcategory. Stages run in order and the first hit wins: a file whose
// name contains the slug, then constructed filenames, then similarity
// scoring of filename cores.
func (m *PromptMatcher) Resolve(slug string, row Row) (string, error) {
	info, err := os.Stat(m.promptsDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: prompts directory not found: %s", ErrNoPrompts, m.promptsDir)
	}

	if len(row) < 2 {
		return "", &MalformedRowError{Row: row}
	}

	category := taxonomyToken(row[0])
	subcategory := taxonomyToken(row[1])
	core := SlugCore(slug)

	if path, ok, err := m.directMatch(slug, category, subcategory); err != nil {
		return "", err
	} else if ok {
		m.logger.Debug("prompt matched by name containment", "slug", slug, "file", path)
		return path, m.ensureInputFolder(slug)
	}

	if path, ok := m.constructedMatch(slug, core, category, subcategory); ok {
		m.logger.Debug("prompt matched by constructed name", "slug", slug, "file", path)
		return path, m.ensureInputFolder(slug)
	}

	best, err := m.similarityMatch(core)
	if err != nil {
		return "", err
	}
	if best.score < m.threshold {
		return "", &NoMatchError{Slug: slug, Best: filepath.Base(best.path), Score: best.score}
	}

	m.logger.Debug("prompt matched by similarity", "slug", slug, "file", best.path, "score", best.score)
	return best.path, m.ensureInputFolder(slug)
}

// directMatch looks for prompt files directly inside the prompts directory
// whose name contains the slug. Among several, files named after the row's
// category/subcategory win, then exact suffixes, then the shortest name.
func (m *PromptMatcher) directMatch(slug, category, subcategory string) (string, bool, error) {
	files, err := filepath.Glob(filepath.Join(m.promptsDir, "*.json"))
	if err != nil {
		return "", false, fmt.Errorf("listing prompt files: %w", err)
	}

	slugPlain := strings.ToLower(slug)
	var matches []string
	for _, f := range files {
		if strings.Contains(strings.ToLower(fileStem(f)), slugPlain) {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}

	rank := func(path string) [4]int {
		stem := strings.ToLower(fileStem(path))
		return [4]int{
			boolRank(strings.HasPrefix(stem, category+"_")),
			boolRank(strings.Contains(stem, category+"_"+subcategory)),
			boolRank(strings.HasSuffix(stem, slugPlain)),
			len(stem),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := rank(matches[i]), rank(matches[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return matches[0], true, nil
}

// constructedMatch tries the filenames the prompt generator normally
// produces, e.g. business_accounting_price-elasticity-calculator.json.
func (m *PromptMatcher) constructedMatch(slug, core, category, subcategory string) (string, bool) {
	prefix := category + "_" + subcategory + "_"
	candidates := []string{
		prefix + slug + ".json",
		prefix + core + "-calculator.json",
		prefix + core + ".json",
	}
	for _, name := range candidates {
		path := filepath.Join(m.promptsDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// similarityMatch scores every prompt file below the prompts directory and
// returns the best one, regardless of the threshold.
func (m *PromptMatcher) similarityMatch(core string) (scoredPrompt, error) {
	var files []string
	err := filepath.WalkDir(m.promptsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return scoredPrompt{}, fmt.Errorf("walking prompts directory: %w", err)
	}
	if len(files) == 0 {
		return scoredPrompt{}, fmt.Errorf("%w: no .json file found in %s", ErrNoPrompts, m.promptsDir)
	}

	scored := make([]scoredPrompt, 0, len(files))
	for _, f := range files {
		score := stringSimilarity(core, SlugCoreFromFilename(f))
		if strings.Contains(strings.ToLower(fileStem(f)), core) {
			score += m.bonus
		}
		scored = append(scored, scoredPrompt{path: f, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored[0], nil
}

// ensureInputFolder creates input/<slug>/ with an empty placeholder
// manifest so context lookups for a freshly matched slug find a folder.
func (m *PromptMatcher) ensureInputFolder(slug string) error {
	folder := filepath.Join(m.inputDir, slug)
	if _, err := os.Stat(folder); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking input folder %s: %w", folder, err)
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("creating input folder %s: %w", folder, err)
	}
	manifest := filepath.Join(folder, "manifest.json")
	if err := os.WriteFile(manifest, []byte(placeholderManifest), 0644); err != nil {
		return fmt.Errorf("writing placeholder manifest %s: %w", manifest, err)
	}
	m.logger.Info("created placeholder input folder", "slug", slug, "folder", folder)
	return nil
}

// stringSimilarity is the Ratcliff/Obershelp ratio over characters, in [0, 1].
func stringSimilarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func taxonomyToken(cell string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cell)), " ", "-")
}

func boolRank(hit bool) int {
	if hit {
		return 0
	}
	return 1
}
