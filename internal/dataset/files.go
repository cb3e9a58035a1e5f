package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
)

// Suffixes of the files derived from a source file.
const (
	TransformedSuffix = "-transformed"
	TrainingSuffix    = "-trainingData"
	EvaluationSuffix  = "-testData"
)

const maxLineBytes = 1 << 20

// DerivedPath returns the path of a file written next to source, e.g.
// data/orders.csv -> data/orders-transformed.csv.
func DerivedPath(source, suffix string) string {
	return strings.TrimSuffix(source, ".csv") + suffix + ".csv"
}

// ReadLines calls fn for every non-blank line of r with its 1-based line number.
func ReadLines(ctx context.Context, r io.Reader, fn func(lineNumber int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if lineNumber%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNumber, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read lines: %w", err)
	}
	return nil
}

// TransformReader transforms every record read from r.
func TransformReader(ctx context.Context, t *Transformer, r io.Reader) ([]model.TransformedRecord, error) {
	var records []model.TransformedRecord
	err := ReadLines(ctx, r, func(lineNumber int, line string) error {
		record, err := t.Transform(model.ParseRawRecord(line))
		if err != nil {
			return common.WithLine(err, lineNumber)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// TransformFile transforms every record of the raw file at path.
func TransformFile(ctx context.Context, t *Transformer, path string) ([]model.TransformedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	records, err := TransformReader(ctx, t, f)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", path, err)
	}
	return records, nil
}

// ReadTransformedFile loads a transformed file, checking every row against width.
// A width of 0 skips the check.
func ReadTransformedFile(ctx context.Context, path string, width int) ([]model.TransformedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transformed file: %w", err)
	}
	defer f.Close()

	var records []model.TransformedRecord
	err = ReadLines(ctx, f, func(lineNumber int, line string) error {
		record := model.ParseTransformedRecord(line)
		if width > 0 && len(record) != width {
			return common.WithLine(common.NewMalformedRecordError("expected %d columns, got %d", width, len(record)), lineNumber)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// WriteRecords replaces the file at path with one line per record.
// The file is written to a temporary sibling first and renamed into place.
func WriteRecords(path string, records []model.TransformedRecord) (err error) {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, 0750); mkErr != nil {
		return fmt.Errorf("failed to create output directory: %w", mkErr)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, record := range records {
		if _, err = w.WriteString(record.Line()); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush records: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}
