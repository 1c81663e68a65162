package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Store errors.
var (
	ErrNotFound    = errors.New("persist: sketch not found")
	ErrInvalidName = errors.New("persist: invalid sketch name")
)

const maxNameLen = 128

// Store keeps serialized sketches under unique names.
type Store interface {
	// Put stores data under name, replacing any previous value.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the data stored under name or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns all stored names in ascending order.
	List(ctx context.Context) ([]string, error)
	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
	// Close releases the store's resources.
	Close() error
}

// ValidateName accepts names made of letters, digits, '-', '_' and '.',
// not starting with '.', at most 128 bytes long.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLen || name[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}

	return nil
}

// FileStore keeps one file per sketch in a directory.
type FileStore struct {
	dir   string
	codec Codec
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &FileStore{dir: dir, codec: codec}, nil
}

func (fs *FileStore) suffix() string {
	return SketchExtension + fs.codec.Extension()
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dir, name+fs.suffix())
}

// Put implements Store.
func (fs *FileStore) Put(_ context.Context, name string, data []byte) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	return SaveFile(fs.path(name), data)
}

// Get implements Store.
func (fs *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	data, err := LoadFile(fs.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return data, err
}

// List implements Store. Files written with another codec are ignored.
func (fs *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("list store directory: %w", err)
	}

	suffix := fs.suffix()

	var names []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name, ok := strings.CutSuffix(e.Name(), suffix)
		if !ok || ValidateName(name) != nil || CodecForPath(e.Name()) != fs.codec {
			continue
		}

		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Delete implements Store.
func (fs *FileStore) Delete(_ context.Context, name string) error {
	err := ValidateName(name)
	if err != nil {
		return err
	}

	err = os.Remove(fs.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete state file: %w", err)
	}

	return nil
}

// Close implements Store.
func (fs *FileStore) Close() error { return nil }
