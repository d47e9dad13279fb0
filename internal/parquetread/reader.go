package parquetread

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Reader wraps a parquet GenericReader for streaming reference records.
type Reader[T any] struct {
	file   *os.File
	pf     *parquet.File
	reader *parquet.GenericReader[T]
}

// Open opens a Parquet file and returns a streaming Reader.
func Open[T any](path string) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[T](pf)
	return &Reader[T]{file: f, pf: pf, reader: r}, nil
}

// NumRows returns the total number of rows in the Parquet file.
func (r *Reader[T]) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into the provided slice.
// Returns the number of rows read and io.EOF when done.
func (r *Reader[T]) Read(rows []T) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// Schema returns the file's Parquet schema for validation.
func (r *Reader[T]) Schema() *parquet.Schema {
	return r.pf.Schema()
}

// Close releases all resources.
func (r *Reader[T]) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Each streams every record of the file at path through fn in batches.
// fn receives the 1-based row number.
func Each[T any](path string, fn func(rowNum int64, rec *T) error) (int64, error) {
	r, err := Open[T](path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	buf := make([]T, 512)
	var rowNum int64
	for {
		n, readErr := r.Read(buf)
		for i := 0; i < n; i++ {
			rowNum++
			if err := fn(rowNum, &buf[i]); err != nil {
				return rowNum, err
			}
		}
		if readErr == io.EOF {
			return rowNum, nil
		}
		if readErr != nil {
			return rowNum, fmt.Errorf("read parquet at row %d: %w", rowNum, readErr)
		}
	}
}

// FileSchema returns the schema and row count of the Parquet file at path
// without decoding any rows.
func FileSchema(path string) (*parquet.Schema, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, 0, fmt.Errorf("open parquet: %w", err)
	}
	return pf.Schema(), pf.NumRows(), nil
}
