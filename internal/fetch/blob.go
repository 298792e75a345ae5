package fetch

import (
	"fmt"
	"os"
	"path/filepath"
)

// objectPath places key under objects/<2 hex>/<rest>.
func objectPath(root, key string) (string, error) {
	hexStr, err := ParseHash(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "objects", hexStr[:2], hexStr[2:]), nil
}

// writeObject stores data under key, replacing what was there. The write goes
// through a temporary file so readers never see a partial body.
func writeObject(root, key string, data []byte) error {
	path, err := objectPath(root, key)
	if err != nil {
		return fmt.Errorf("computing object path: %w", err)
	}
	return writeFileAtomic(path, data)
}

// readObject returns the body stored under key and checks it against want.
func readObject(root, key, want string) ([]byte, error) {
	path, err := objectPath(root, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if got := HashContent(data); got != want {
		return nil, fmt.Errorf("cache integrity check failed for %s: expected %s, got %s", path, want, got)
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}
