package storage

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// textKinds are artifact kinds stored gzip-compressed. Binary kinds
// (screenshots) are already compressed and stay as-is.
var textKinds = map[string]bool{
	"html": true,
	"dom":  true,
	"css":  true,
}

// FileStore writes artifacts under a date-partitioned layout:
//
//	<base>/<kind>/<year>/<month>/<day>/<domain>_<hash>.<ext>
//
// The layout keeps one day's crawl output together and keeps directory
// sizes bounded on long-running installations.
type FileStore struct {
	base string

	// now is replaceable for tests.
	now func() time.Time
}

// NewFileStore creates a store rooted at base. The directory is created
// on first write, not here.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base, now: time.Now}
}

// Store writes one artifact and returns its path. Text kinds are
// gzip-compressed and get a .gz suffix.
func (s *FileStore) Store(kind, domain, hash, ext string, data []byte) (string, error) {
	t := s.now()
	dir := filepath.Join(s.base, kind,
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", sanitize(domain), hash, ext)
	path := filepath.Join(dir, name)

	if textKinds[kind] {
		return s.writeGzip(path+".gz", data)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// writeGzip writes data compressed. The temp-then-rename dance keeps a
// crashed write from leaving a torn artifact behind.
func (s *FileStore) writeGzip(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	zw := gzip.NewWriter(tmp)
	if _, err := zw.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("compress artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("compress artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("place artifact: %w", err)
	}
	return path, nil
}

// sanitize makes a host name safe as a file name component.
func sanitize(domain string) string {
	out := make([]rune, 0, len(domain))
	for _, r := range domain {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '.', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
