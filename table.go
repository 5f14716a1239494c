package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	dateStampLayout   = "01/02/2006"
	backupStampLayout = "2006-01-02-15-04-05"
)

// Table is the job list: a header row followed by data rows.
type Table struct {
	Path string
	Rows []Row
}

// LoadTable reads the CSV file at path. The file must contain at least a
// header row. Blank lines are kept as empty rows so row numbers match the
// file and a rewrite does not drop them.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("CSV file not found: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []Row
	next := 1 // line where the next record would start
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)
		for ; next < line; next++ {
			rows = append(rows, Row{})
		}

		last := len(record) - 1
		lastLine, _ := reader.FieldPos(last)
		next = lastLine + strings.Count(record[last], "\n") + 1
		rows = append(rows, Row(record))
	}
	for total := countLines(data); next <= total; next++ {
		rows = append(rows, Row{})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty: %s", path)
	}
	return &Table{Path: path, Rows: rows}, nil
}

func countLines(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// DataRows returns every row after the header.
func (t *Table) DataRows() []Row {
	if len(t.Rows) <= 1 {
		return nil
	}
	return t.Rows[1:]
}

// StampDate writes value into column of the given data row, padding the
// row with empty cells when it is too short.
func (t *Table) StampDate(dataIndex, column int, value string) {
	i := dataIndex + 1 // skip header
	row := t.Rows[i]
	if len(row) <= column {
		row = append(row, make(Row, column+1-len(row))...)
	}
	row[column] = value
	t.Rows[i] = row
}

// Save backs up the current file and rewrites it with the in-memory rows.
// It returns the backup path, empty when there was nothing to back up.
func (t *Table) Save(now time.Time) (string, error) {
	backup, err := BackupFile(t.Path, now)
	if err != nil {
		return "", err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return backup, fmt.Errorf("opening %s for writing: %w", t.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return backup, fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return backup, fmt.Errorf("flushing CSV: %w", err)
	}
	return backup, f.Close()
}

// BackupFile copies path to path.bak-YYYY-MM-DD-HH-MM-SS, keeping its mode
// and modification time. A missing file is not backed up.
func BackupFile(path string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("opening %s for backup: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	backupPath := path + ".bak-" + now.Format(backupStampLayout)
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("creating backup %s: %w", backupPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copying backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	if err := os.Chtimes(backupPath, info.ModTime(), info.ModTime()); err != nil {
		return "", err
	}
	return backupPath, nil
}

// FormatStampDate renders the completion date written into the date column.
func FormatStampDate(t time.Time) string {
	return t.Format(dateStampLayout)
}
