package storage

import (
	"os"
	"path/filepath"
)

// DiskUsageBytes sums the on-disk size of the given paths. A path may be a
// single file or a directory; the artifact database is usually passed as its
// file path, which misses the WAL and shm sidecars, so status callers pass the
// containing directory when they want the full footprint. Missing paths
// contribute zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var size int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if !info.IsDir() {
				size += info.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}
