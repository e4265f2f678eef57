package v1

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"sync"
	"time"
)

type exportDownload struct {
	filePath  string
	filename  string
	expiresAt time.Time
}

// exportDownloadStore 一次性下载令牌，过期条目在每次访问时清理并删除临时文件
type exportDownloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
	now   func() time.Time
}

func newExportDownloadStore() *exportDownloadStore {
	return &exportDownloadStore{
		items: make(map[string]exportDownload),
		now:   time.Now,
	}
}

func (s *exportDownloadStore) put(filePath, filename string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token = newRandomToken(24)
	s.items[token] = exportDownload{
		filePath:  filePath,
		filename:  filename,
		expiresAt: now.Add(ttl),
	}
	return token
}

func (s *exportDownloadStore) get(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(s.now())

	v, ok := s.items[token]
	return v, ok
}

func (s *exportDownloadStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

func (s *exportDownloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
			_ = os.Remove(v.filePath)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
