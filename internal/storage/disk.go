package storage

import (
	"os"
	"strings"
)

// sqliteSidecars are the files SQLite keeps beside the database in WAL mode.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes returns the bytes the backend occupies on disk at path. SQLite's WAL and
// shared-memory files are included. The memory backend and a not yet created database
// both report 0.
func DiskUsageBytes(backend, path string) (int64, error) {
	if path == "" || strings.EqualFold(backend, BackendMemory) {
		return 0, nil
	}
	files := []string{path}
	if backend == "" || strings.EqualFold(backend, BackendSQLite) {
		for _, suffix := range sqliteSidecars {
			files = append(files, path+suffix)
		}
	}
	var total int64
	for _, f := range files {
		info, err := os.Stat(f)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total, nil
}
