package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

const filePerm = 0o644

// SaveFile compresses data with the codec implied by path's extension and
// replaces path atomically.
func SaveFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	tmpName := tmp.Name()

	err = CodecForPath(path).Encode(tmp, data)
	if err == nil {
		err = tmp.Chmod(filePerm)
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("encode state: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// LoadFile reads path and decompresses it with the codec implied by its extension.
func LoadFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	data, err := CodecForPath(path).Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	return data, nil
}
