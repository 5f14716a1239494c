package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	settingsPath string
	csvPath      string
	promptsDir   string
	outputDir    string
	inputDir     string
	buildLogPath string
	provider     string
	model        string
	apiKey       string
	skipGit      bool
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "factory-runner [start-row] [row-count]",
	Short: "Generate calculator configs for a window of CSV rows",
	Long: `Reads a window of rows from the job CSV, resolves each row's prompt file,
calls the generator with the prompt and its context folder, saves the extracted
JSON config, stamps rows that built cleanly, and publishes the result with git.`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := LoadConfig(buildOverrides())
		if err != nil {
			return err
		}

		logger, closeLog := SetupLogger(settings.Logging.File, parseLogLevel(settings.Logging.Level))
		defer closeLog()
		slog.SetDefault(logger)

		job, err := prepareBatch(".", settings, args, cmd.InOrStdin(), cmd.OutOrStdout(), apiKey)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runBatch(ctx, ".", settings, job, logger)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match [start-row] [row-count]",
	Short: "Show which prompt file each row resolves to without generating",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := LoadConfig(buildOverrides())
		if err != nil {
			return err
		}

		logger, closeLog := SetupLogger(settings.Logging.File, parseLogLevel(settings.Logging.Level))
		defer closeLog()

		startRow, count, err := parseWindowArgs(args, settings.Batch.DefaultRows, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		table, err := LoadTable(settings.Paths.CSV)
		if err != nil {
			return err
		}
		reconciler, err := NewReconciler(".", settings, nil, logger)
		if err != nil {
			return err
		}

		results, err := reconciler.Match(table, startRow, count)
		printMatches(cmd.OutOrStdout(), results)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsPath, "settings", "", "Path to settings YAML (default .factory-runner/settings.yaml)")
	flags.StringVar(&csvPath, "csv", "", "Path to the job CSV")
	flags.StringVar(&promptsDir, "prompts", "", "Directory of generated prompt files")
	flags.StringVar(&outputDir, "output", "", "Directory for extracted configs")
	flags.StringVar(&inputDir, "input", "", "Root of per-slug context folders")
	flags.StringVar(&buildLogPath, "build-log", "", "Path to the build log")
	flags.StringVar(&provider, "provider", "", "Generator provider: openai, anthropic or gemini")
	flags.StringVar(&model, "model", "", "Generator model name")
	flags.StringVar(&apiKey, "api-key", "", "Generator API key (default from the provider's environment variable)")
	flags.BoolVar(&skipGit, "skip-git", false, "Do not add, commit or push after the batch")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(matchCmd)
}

func buildOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{SkipGit: skipGit, Debug: debugMode}
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	overrides.SettingsPath = set(settingsPath)
	overrides.CSVPath = set(csvPath)
	overrides.PromptsDir = set(promptsDir)
	overrides.OutputDir = set(outputDir)
	overrides.InputDir = set(inputDir)
	overrides.BuildLogPath = set(buildLogPath)
	overrides.Provider = set(provider)
	overrides.Model = set(model)
	return overrides
}

// batchJob is a validated request to process one window of rows.
type batchJob struct {
	table     *Table
	generator Generator
	startRow  int
	count     int
}

// prepareBatch checks the row window against the table before the
// generator is built, so a bad row number is reported ahead of a missing
// API key.
func prepareBatch(workDir string, settings *Settings, args []string, in io.Reader, out io.Writer, explicitKey string) (*batchJob, error) {
	startRow, count, err := parseWindowArgs(args, settings.Batch.DefaultRows, in, out)
	if err != nil {
		return nil, err
	}

	table, err := LoadTable(resolvePath(workDir, settings.Paths.CSV))
	if err != nil {
		return nil, err
	}
	if _, err := ValidateWindow(startRow, count, len(table.DataRows())); err != nil {
		return nil, err
	}

	generator, err := NewGenerator(settings.Generator, ResolveAPIKey(settings.Generator.Provider, explicitKey))
	if err != nil {
		return nil, err
	}
	return &batchJob{table: table, generator: generator, startRow: startRow, count: count}, nil
}

// runBatch processes one window of rows and publishes the working tree.
func runBatch(ctx context.Context, workDir string, settings *Settings, job *batchJob, logger *slog.Logger) error {
	buildLog, err := LoadBuildLog(resolvePath(workDir, settings.Paths.BuildLog))
	if err != nil {
		logger.Warn("could not read build log", "path", settings.Paths.BuildLog, "error", err)
		buildLog = nil
	}

	reconciler, err := NewReconciler(workDir, settings, job.generator, logger)
	if err != nil {
		return err
	}

	report, err := reconciler.Run(ctx, job.table, buildLog, job.startRow, job.count)
	if err != nil {
		return err
	}
	logger.Info("batch complete",
		"rows", len(report.Results),
		"stamped", len(report.Stamped),
		"build_log", report.BuildLogLoaded)

	publisher := NewGitPublisher(workDir, settings.Git, nil, logger)
	return publisher.Publish(ctx, job.startRow)
}

// parseWindowArgs reads the starting row and row count from args, asking
// on in for the starting row when it was not given.
func parseWindowArgs(args []string, defaultRows int, in io.Reader, out io.Writer) (int, int, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		fmt.Fprint(out, "Enter starting row number (1 = first data row after header): ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return 0, 0, fmt.Errorf("reading starting row: %w", err)
		}
		raw = line
	}

	startRow, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid starting row %q: must be an integer", strings.TrimSpace(raw))
	}

	count := defaultRows
	if len(args) > 1 {
		count, err = strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid row count %q: must be an integer", args[1])
		}
	}
	return startRow, count, nil
}

func printMatches(w io.Writer, results []RowResult) {
	for _, r := range results {
		switch {
		case r.Outcome == OutcomeNoSlug:
			fmt.Fprintf(w, "row %d: no slug\n", r.Number())
		case r.Error != nil:
			fmt.Fprintf(w, "row %d: %s: %v\n", r.Number(), r.Slug, r.Error)
		default:
			fmt.Fprintf(w, "row %d: %s -> %s\n", r.Number(), r.Slug, r.PromptFile)
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
