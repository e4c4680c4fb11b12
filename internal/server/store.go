package server

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/google/uuid"
)

type cachedWorkbook struct {
	wb        *parser.Workbook
	expiresAt time.Time
}

// workbookStore keeps uploaded workbooks in memory. Each access extends the
// entry's lifetime by ttl.
type workbookStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]cachedWorkbook
}

func newWorkbookStore(ttl time.Duration) *workbookStore {
	return &workbookStore{ttl: ttl, now: time.Now, items: make(map[string]cachedWorkbook)}
}

func (s *workbookStore) put(wb *parser.Workbook) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeExpiredLocked(now)
	id := uuid.NewString()
	s.items[id] = cachedWorkbook{wb: wb, expiresAt: now.Add(s.ttl)}
	return id
}

func (s *workbookStore) get(id string) (*parser.Workbook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeExpiredLocked(now)
	v, ok := s.items[id]
	if !ok {
		return nil, false
	}
	v.expiresAt = now.Add(s.ttl)
	s.items[id] = v
	return v.wb, true
}

func (s *workbookStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

func (s *workbookStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *workbookStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

type download struct {
	name        string
	contentType string
	data        []byte
	expiresAt   time.Time
}

// downloadStore holds finished artifacts behind single-use tokens.
type downloadStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]download
}

func newDownloadStore(ttl time.Duration) *downloadStore {
	return &downloadStore{ttl: ttl, now: time.Now, items: make(map[string]download)}
}

func (s *downloadStore) put(name, contentType string, data []byte) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeExpiredLocked(now)
	token = newRandomToken(24)
	s.items[token] = download{name: name, contentType: contentType, data: data, expiresAt: now.Add(s.ttl)}
	return token
}

// take returns the artifact and forgets it.
func (s *downloadStore) take(token string) (download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	v, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return v, ok
}

func (s *downloadStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
