package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gstorage "cloud.google.com/go/storage"
)

// ErrFileNotFound is returned when a remote or local file does not exist
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

// IsErrNotFound returns true if the error is due to a missing file or object
func IsErrNotFound(err error) bool {
	var epath *os.PathError
	var enf ErrFileNotFound
	return errors.Is(err, gstorage.ErrObjectNotExist) ||
		errors.As(err, &enf) ||
		(errors.As(err, &epath) && os.IsNotExist(epath))
}

// EnsureDir creates the directory and its parents. It succeeds if the directory already exists.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("EnsureDir: %w", err)
	}
	return nil
}

// WriteFileAtomic writes the content of r to a temporary file in the directory of filename,
// then renames it. On failure, the temporary file is removed and filename is left untouched.
func WriteFileAtomic(filename string, r io.Reader) (int64, error) {
	dir := filepath.Dir(filename)
	f, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("WriteFileAtomic.CreateTemp: %w", err)
	}
	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(f.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(f.Name(), filename)
	}
	if err != nil {
		os.Remove(f.Name())
		return 0, fmt.Errorf("WriteFileAtomic: %w", err)
	}
	return n, nil
}

// WriteJSON writes v as indented json into filename, atomically
func WriteJSON(v interface{}, filename string) error {
	vb, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteJSON.Marshal: %w", err)
	}
	vb = append(vb, '\n')
	if _, err := WriteFileAtomic(filename, bytes.NewReader(vb)); err != nil {
		return fmt.Errorf("WriteJSON.%w", err)
	}
	return nil
}

// ReadJSON reads filename into v
func ReadJSON(filename string, v interface{}) error {
	vb, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("ReadJSON: %w", err)
	}
	if err := json.Unmarshal(vb, v); err != nil {
		return fmt.Errorf("ReadJSON.Unmarshal(%s): %w", filename, err)
	}
	return nil
}
