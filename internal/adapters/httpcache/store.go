package httpcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sa/internal/core/domain"
)

// entryMeta is the JSON sidecar stored next to a cached body.
type entryMeta struct {
	URL          string    `json:"url"`
	Accept       string    `json:"accept,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

type store struct {
	dir string
}

func newStore(dir string) (*store, error) {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, domain.DirPerm); err != nil {
		return nil, domain.FilesystemError(err, "mkdir", clean)
	}
	return &store{dir: clean}, nil
}

func cacheKey(rawURL, accept string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(accept+"\x00"+rawURL))
}

func (s *store) bodyPath(key string) string {
	return filepath.Join(s.dir, key[:2], key+".body")
}

func (s *store) metaPath(key string) string {
	return filepath.Join(s.dir, key[:2], key+".json")
}

// load returns the cached entry. A missing or unreadable entry is a miss.
func (s *store) load(key string) (entryMeta, []byte, bool) {
	var meta entryMeta
	raw, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		return meta, nil, false
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, nil, false
	}
	body, err := os.ReadFile(s.bodyPath(key))
	if err != nil {
		return meta, nil, false
	}
	return meta, body, true
}

// save writes the body before its sidecar so a readable sidecar always has a body.
func (s *store) save(key string, meta entryMeta, body []byte) error {
	if err := writeFileAtomic(s.bodyPath(key), body); err != nil {
		return err
	}
	return s.saveMeta(key, meta)
}

func (s *store) saveMeta(key string, meta entryMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.metaPath(key), data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return domain.FilesystemError(err, "create temp", dir)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.FilesystemError(err, "write", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return domain.FilesystemError(err, "close", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.FilesystemError(err, "rename", path)
	}
	return nil
}
