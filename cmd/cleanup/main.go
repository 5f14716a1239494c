package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	manifestFileName = "manifest.json"
	rawOutputSuffix  = "_raw_output.txt"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: cleanup <placeholders|raw-outputs> <directory>")
	}

	command := os.Args[1]
	dir := os.Args[2]
	reader := bufio.NewReader(os.Stdin)

	switch command {
	case "placeholders":
		if err := removePlaceholders(dir, reader); err != nil {
			log.Fatal(err)
		}
	case "raw-outputs":
		if err := removeRawOutputs(dir, reader); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// findPlaceholders returns the folders directly under inputDir that only
// hold a manifest with no results.
func findPlaceholders(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputDir, err)
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folder := filepath.Join(inputDir, e.Name())
		ok, err := isPlaceholder(folder)
		if err != nil {
			log.Printf("Error checking %s: %v", folder, err)
			continue
		}
		if ok {
			folders = append(folders, folder)
		}
	}
	return folders, nil
}

func isPlaceholder(folder string) (bool, error) {
	var files []string
	if err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return false, err
	}
	if len(files) != 1 || filepath.Base(files[0]) != manifestFileName {
		return false, nil
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		return false, err
	}
	var manifest struct {
		Results *[]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false, nil // not ours
	}
	return manifest.Results != nil && len(*manifest.Results) == 0, nil
}

func removePlaceholders(inputDir string, reader *bufio.Reader) error {
	folders, err := findPlaceholders(inputDir)
	if err != nil {
		return err
	}

	removed := 0
	for _, folder := range folders {
		if !confirmDelete(reader, folder) {
			fmt.Printf("  SKIP: %s\n", filepath.Base(folder))
			continue
		}
		if err := os.RemoveAll(folder); err != nil {
			log.Printf("Error removing %s: %v", folder, err)
			continue
		}
		removed++
		fmt.Printf("  REMOVED: %s\n", filepath.Base(folder))
	}

	fmt.Printf("\nRemoved %d placeholder folders\n", removed)
	return nil
}

// findStaleRawOutputs returns raw output files whose config has since been saved.
func findStaleRawOutputs(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", outputDir, err)
	}

	var stale []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, rawOutputSuffix) {
			continue
		}
		slug := strings.TrimSuffix(name, rawOutputSuffix)
		if _, err := os.Stat(filepath.Join(outputDir, slug+".json")); err == nil {
			stale = append(stale, filepath.Join(outputDir, name))
		}
	}
	return stale, nil
}

func removeRawOutputs(outputDir string, reader *bufio.Reader) error {
	files, err := findStaleRawOutputs(outputDir)
	if err != nil {
		return err
	}

	removed := 0
	for _, file := range files {
		if !confirmDelete(reader, file) {
			fmt.Printf("  SKIP: %s\n", filepath.Base(file))
			continue
		}
		if err := os.Remove(file); err != nil {
			log.Printf("Error removing %s: %v", file, err)
			continue
		}
		removed++
		fmt.Printf("  REMOVED: %s\n", filepath.Base(file))
	}

	fmt.Printf("\nRemoved %d raw output files\n", removed)
	return nil
}

func confirmDelete(reader *bufio.Reader, path string) bool {
	for {
		fmt.Printf("  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
