package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// HistoryWriter streams batch rows into parquet segments under outDir. A
// segment is written in outDir/tmp and moved into outDir once it holds
// RotateRows rows or when Flush is called.
type HistoryWriter struct {
	mu         sync.Mutex
	outDir     string
	tmpDir     string
	rotateRows int

	seg   *segment
	files []string
	total int
}

type segment struct {
	tmpPath string
	outPath string
	file    *os.File
	writer  *parquet.GenericWriter[BatchRow]
	rows    int
}

func NewHistoryWriter(outDir string, rotateRows int) (*HistoryWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	if rotateRows <= 0 {
		rotateRows = 1000
	}
	return &HistoryWriter{outDir: absOut, tmpDir: tmpDir, rotateRows: rotateRows}, nil
}

func (h *HistoryWriter) Dir() string { return h.outDir }

// Files lists the segments finalized so far.
func (h *HistoryWriter) Files() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.files...)
}

// Rows is the number of rows accepted since construction.
func (h *HistoryWriter) Rows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func (h *HistoryWriter) Write(rows []BatchRow) error {
	if len(rows) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seg == nil {
		seg, err := h.openSegment()
		if err != nil {
			return err
		}
		h.seg = seg
	}
	if _, err := h.seg.writer.Write(rows); err != nil {
		return fmt.Errorf("write history rows: %w", err)
	}
	h.seg.rows += len(rows)
	h.total += len(rows)

	if h.seg.rows >= h.rotateRows {
		_, err := h.finalize()
		return err
	}
	return nil
}

// Flush finalizes the open segment and returns its path, or "" if nothing
// was pending.
func (h *HistoryWriter) Flush() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finalize()
}

func (h *HistoryWriter) Close() error {
	_, err := h.Flush()
	return err
}

func (h *HistoryWriter) openSegment() (*segment, error) {
	name := fmt.Sprintf("history_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(h.tmpDir, name+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[BatchRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", batchSchema)

	return &segment{
		tmpPath: tmpPath,
		outPath: filepath.Join(h.outDir, name),
		file:    f,
		writer:  w,
	}, nil
}

func (h *HistoryWriter) finalize() (string, error) {
	seg := h.seg
	if seg == nil {
		return "", nil
	}
	h.seg = nil

	closeErr := seg.writer.Close()
	_ = seg.file.Sync()
	fileErr := seg.file.Close()
	if closeErr != nil {
		_ = os.Remove(seg.tmpPath)
		return "", fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(seg.tmpPath)
		return "", fmt.Errorf("close parquet file: %w", fileErr)
	}

	if seg.rows == 0 {
		_ = os.Remove(seg.tmpPath)
		return "", nil
	}
	if err := os.Rename(seg.tmpPath, seg.outPath); err != nil {
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	h.files = append(h.files, seg.outPath)
	return seg.outPath, nil
}
