package links

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteEnvFile replaces the file at path with pairs joined by a single newline,
// without a trailing newline. An empty pair list removes the file.
func WriteEnvFile(path string, pairs []string) error {
	if len(pairs) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove env file %s: %w", path, err)
		}
		return nil
	}
	return writeFileAtomic(path, []byte(strings.Join(pairs, "\n")))
}

// ReadEnvFile returns the NAME=value pairs in path in file order. It is the
// exact inverse of WriteEnvFile: each line is split at its first '=' and the
// value is kept verbatim. A missing file yields an empty list.
func ReadEnvFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	pairs := []string{}
	for i, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok || !envNamePattern.MatchString(name) {
			return nil, fmt.Errorf("malformed line %d in env file %s", i+1, path)
		}
		pairs = append(pairs, name+"="+value)
	}
	return pairs, nil
}

// CopyEnvFile copies the env file at src to dst, replacing dst.
func CopyEnvFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return writeFileAtomic(dst, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
