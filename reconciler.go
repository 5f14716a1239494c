package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Window is a half-open range [Start, End) of 0-based data row indices.
type Window struct {
	Start int
	End   int
}

// ValidateWindow turns a 1-based starting row and a row count into a
// window over dataRows rows, clamping the end to the available data.
func ValidateWindow(startRow, count, dataRows int) (Window, error) {
	if startRow < 1 {
		return Window{}, fmt.Errorf("starting row must be >= 1, got %d", startRow)
	}
	if count < 1 {
		return Window{}, fmt.Errorf("row count must be >= 1, got %d", count)
	}
	if dataRows == 0 {
		return Window{}, errors.New("no data rows in CSV")
	}
	start := startRow - 1
	if start >= dataRows {
		return Window{}, fmt.Errorf("starting row %d is beyond available data rows (%d)", startRow, dataRows)
	}
	return Window{Start: start, End: min(start+count, dataRows)}, nil
}

// BatchReport summarizes one run over a window of rows
type BatchReport struct {
	StartRow       int
	Window         Window
	BuildLogLoaded bool
	Results        []RowResult
	Stamped        []int // data row indices that received a date
	StampDate      string
	BackupPath     string
}

// Eligible returns the rows that may be marked complete.
func (b *BatchReport) Eligible() []RowResult {
	var out []RowResult
	for _, r := range b.Results {
		if r.Eligible() {
			out = append(out, r)
		}
	}
	return out
}

// Reconciler maps each row through match, generate, extract and persist,
// then decides which rows get a completion date.
type Reconciler struct {
	settings  *Settings
	matcher   *PromptMatcher
	contexts  *ContextLoader
	generator Generator
	artifacts *ArtifactStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler wires the pipeline for the project rooted at workDir.
// Relative paths in settings are resolved against workDir. generator may
// be nil when only Match is used.
func NewReconciler(workDir string, settings *Settings, generator Generator, logger *slog.Logger) (*Reconciler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	artifacts, err := NewArtifactStore(resolvePath(workDir, settings.Paths.Output))
	if err != nil {
		return nil, err
	}

	inputDir := resolvePath(workDir, settings.Paths.Input)
	return &Reconciler{
		settings:  settings,
		matcher:   NewPromptMatcher(resolvePath(workDir, settings.Paths.Prompts), inputDir, settings.Matching, logger),
		contexts:  NewContextLoader(inputDir, settings.Context, logger),
		generator: generator,
		artifacts: artifacts,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run processes the rows of table selected by startRow and count. Only a
// fatal matching error stops the batch early; every other failure skips
// its row. When a build log is available, rows saved without a build
// error are stamped with today's date and the table is rewritten.
func (r *Reconciler) Run(ctx context.Context, table *Table, buildLog *BuildLog, startRow, count int) (*BatchReport, error) {
	data := table.DataRows()
	window, err := ValidateWindow(startRow, count, len(data))
	if err != nil {
		return nil, err
	}
	if r.generator == nil {
		return nil, errors.New("no generator configured")
	}

	report := &BatchReport{
		StartRow:       startRow,
		Window:         window,
		BuildLogLoaded: buildLog != nil,
	}
	if buildLog == nil {
		r.logger.Warn("build log not loaded; no date will be written to the CSV", "path", r.settings.Paths.BuildLog)
	}

	r.logger.Info("processing rows", "from", window.Start+1, "to", window.End)

	for idx := window.Start; idx < window.End; idx++ {
		result, err := r.processRow(ctx, idx, data[idx], buildLog)
		report.Results = append(report.Results, result)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", result.Number(), err)
		}
	}

	if err := r.stampEligible(table, report); err != nil {
		return report, err
	}
	return report, nil
}

// Match resolves the prompt file for each row in the window without
// generating anything.
func (r *Reconciler) Match(table *Table, startRow, count int) ([]RowResult, error) {
	data := table.DataRows()
	window, err := ValidateWindow(startRow, count, len(data))
	if err != nil {
		return nil, err
	}

	var results []RowResult
	for idx := window.Start; idx < window.End; idx++ {
		result := RowResult{Index: idx}
		slug, ok := ExtractSlug(data[idx])
		if !ok {
			result.Outcome = OutcomeNoSlug
			results = append(results, result)
			continue
		}
		result.Slug = slug

		path, err := r.matcher.Resolve(slug, data[idx])
		if err != nil {
			result.Outcome = OutcomeMatchFailed
			result.Error = err
			results = append(results, result)
			if IsFatal(err) {
				return results, fmt.Errorf("row %d: %w", result.Number(), err)
			}
			continue
		}
		result.PromptFile = path
		results = append(results, result)
	}
	return results, nil
}

// processRow returns a non-nil error only when the batch must halt.
func (r *Reconciler) processRow(ctx context.Context, idx int, row Row, buildLog *BuildLog) (RowResult, error) {
	result := RowResult{Index: idx}
	logger := r.logger.With("row", result.Number())

	slug, ok := ExtractSlug(row)
	if !ok {
		result.Outcome = OutcomeNoSlug
		logger.Warn("no URL/slug found in row, skipping")
		return result, nil
	}
	result.Slug = slug
	logger = logger.With("slug", slug)
	logger.Info("slug detected")

	promptFile, err := r.matcher.Resolve(slug, row)
	if err != nil {
		result.Outcome = OutcomeMatchFailed
		result.Error = err
		if IsFatal(err) {
			logger.Error("fatal matching error; fix prompt files and re-run", "error", err)
			return result, err
		}
		logger.Warn("prompt match failed, skipping", "error", err)
		return result, nil
	}
	result.PromptFile = promptFile
	logger.Info("using prompt file", "file", promptFile)

	doc, prompt, err := loadPromptDocument(promptFile)
	if err != nil {
		result.Outcome = OutcomeLoadFailed
		result.Error = err
		logger.Warn("cannot use prompt document, skipping", "file", promptFile, "error", err)
		return result, nil
	}

	files := r.collectContext(doc, logger)

	blocks, err := BuildBlocks(files, prompt)
	if err != nil {
		result.Outcome = OutcomeGenerationFailed
		result.Error = fmt.Errorf("%w: %v", ErrGeneration, err)
		logger.Warn("cannot build generation input, skipping", "error", err)
		return result, nil
	}

	logger.Info("calling generator", "context_files", len(files))
	raw, err := r.generator.Generate(ctx, blocks)
	if err != nil {
		result.Outcome = OutcomeGenerationFailed
		result.Error = fmt.Errorf("%w: %v", ErrGeneration, err)
		logger.Error("generation call failed, skipping", "error", err)
		return result, nil
	}

	block, ok := ExtractJSONBlock(raw)
	if !ok {
		result.Outcome = OutcomeExtractionFailed
		result.Error = ErrNoJSONMarker
		rawPath, err := r.artifacts.SaveRawOutput(slug, raw)
		if err != nil {
			logger.Error(`no JSON block with "version" in model output; raw output could not be saved`, "error", err)
		} else {
			logger.Error(`no JSON block with "version" in model output; fix the prompt to force valid JSON`, "raw_output", rawPath)
		}
		return result, nil
	}

	config, err := ParseNode([]byte(block))
	if err != nil {
		result.Outcome = OutcomeParseFailed
		result.Error = fmt.Errorf("%w: %v", ErrNonJSON, err)
		logger.Error("extracted text is not valid JSON, skipping save", "error", err)
		return result, nil
	}
	if _, ok := config.Field("version"); !ok {
		logger.Warn(`extracted config has no top-level "version"; saving as non-authoritative`)
	}

	path, err := r.artifacts.SaveConfig(slug, config)
	if err != nil {
		result.Outcome = OutcomeSaveFailed
		result.Error = err
		logger.Error("saving config failed", "error", err)
		return result, nil
	}
	result.Artifact = path
	logger.Info("saved config", "path", path)

	switch {
	case buildLog == nil:
		result.Outcome = OutcomeSavedNoLog
		logger.Info("no build log loaded; skipping success marking")
	case buildLog.HasError(slug):
		result.Outcome = OutcomeSavedWithError
		logger.Warn("build error detected for slug in build log")
	default:
		result.Outcome = OutcomeSavedOK
		logger.Info("no build error found for slug; marking as OK")
	}
	return result, nil
}

// collectContext finds the packaged-context reference in the prompt
// document and reads the files of the matching input folder.
func (r *Reconciler) collectContext(doc *Node, logger *slog.Logger) []ContextFile {
	ref, ok := FindString(doc, ContainsMarker(contextZipMarker))
	if !ok {
		logger.Info("no zip reference found; using prompt only")
		return nil
	}

	folder := r.contexts.FolderFor(ref)
	files, err := r.contexts.Collect(folder)
	if err != nil {
		logger.Warn("reading context folder failed; using prompt only", "folder", folder, "error", err)
		return nil
	}
	logger.Info("using folder for context", "folder", folder, "files", len(files))
	return files
}

// stampEligible writes today's date into eligible rows and saves the table.
func (r *Reconciler) stampEligible(table *Table, report *BatchReport) error {
	eligible := report.Eligible()
	if !report.BuildLogLoaded {
		r.logger.Info("CSV not updated (no build log available)")
		return nil
	}
	if len(eligible) == 0 {
		r.logger.Info("no successful rows to update in CSV based on build log")
		return nil
	}

	now := r.now()
	report.StampDate = FormatStampDate(now)
	for _, res := range eligible {
		table.StampDate(res.Index, r.settings.Batch.DateColumn, report.StampDate)
		report.Stamped = append(report.Stamped, res.Index)
		r.logger.Info("row stamped", "row", res.Number(), "slug", res.Slug, "date", report.StampDate)
	}

	backup, err := table.Save(now)
	report.BackupPath = backup
	if err != nil {
		return fmt.Errorf("updating CSV: %w", err)
	}
	if backup != "" {
		r.logger.Info("backup created", "path", backup)
	}
	r.logger.Info("CSV updated", "path", table.Path, "rows", len(report.Stamped))
	return nil
}

// loadPromptDocument reads a prompt resource and returns it with its
// prompt text.
func loadPromptDocument(path string) (*Node, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreadableResource, err)
	}
	doc, err := ParseNode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrUnreadableResource, path, err)
	}
	if doc.Kind != KindObject {
		return nil, "", fmt.Errorf("%w: %s is not a JSON object", ErrUnreadableResource, path)
	}

	prompt, ok := doc.StringField("prompt")
	if !ok || prompt == "" {
		return nil, "", fmt.Errorf("%w: no 'prompt' field in %s", ErrMissingPromptField, path)
	}
	return doc, prompt, nil
}

func resolvePath(workDir, p string) string {
	if filepath.IsAbs(p) || workDir == "" {
		return p
	}
	return filepath.Join(workDir, p)
}
