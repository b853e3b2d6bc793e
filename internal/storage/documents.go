package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ReadDocument reads a file under the data directory. rel cannot climb out
// of it.
func (r *RedisStorage) ReadDocument(ctx context.Context, rel string) ([]byte, error) {
	path := filepath.Join(r.dataDir, filepath.Clean("/"+rel))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document not found: %s", rel)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", rel, err)
	}
	return data, nil
}
