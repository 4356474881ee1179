// Package storage handles reading and writing the full chain as a single
// indented JSON document.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blocksim/blocksim/foundation/blockchain/database"
)

// File represents the storage implementation for reading and storing the
// chain in a single file on disk.
type File struct {
	path string
}

// NewFile constructs a File value for use.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the file on disk.
func (f *File) Path() string {
	return f.path
}

// Exists reports if the file is already on disk.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Save writes the specified records to disk, replacing the file. The file
// is first written next to the destination and then renamed into place.
func (f *File) Save(records []database.BlockData) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, records); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

// Load reads the records stored on disk.
func (f *File) Load() ([]database.BlockData, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := database.DecodeRecords(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", f.path, err)
	}

	return records, nil
}

// =============================================================================

// Write marshals the records in a more human readable format.
func Write(w io.Writer, records []database.BlockData) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}

	return nil
}
