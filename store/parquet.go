package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	batchSchema = "batch_history_v1"
	turnSchema  = "episode_turn_v1"
)

// WriteBatchRowsAtomic writes rows into outDir/tmp and then atomically moves
// the file into outDir, so readers never observe a partial file.
func WriteBatchRowsAtomic(outDir string, rows []BatchRow) (string, error) {
	return writeAtomic(outDir, "history", batchSchema, rows)
}

// WriteTurnsAtomic archives the frames of one or more visualized episodes.
func WriteTurnsAtomic(outDir string, rows []TurnRow) (string, error) {
	return writeAtomic(outDir, "episode", turnSchema, rows)
}

func writeAtomic[T any](outDir, prefix, schema string, rows []T) (string, error) {
	if outDir == "" {
		return "", fmt.Errorf("outDir is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.parquet", prefix, time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadBatchRows(path string) ([]BatchRow, error) {
	return readAll[BatchRow](path)
}

func ReadTurns(path string) ([]TurnRow, error) {
	return readAll[TurnRow](path)
}

func readAll[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	out := make([]T, 0, reader.NumRows())
	for {
		// Fresh buffer each pass: rows hold slices the reader may reuse.
		buf := make([]T, 256)
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}
