package crawler

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gocolly/colly/v2/storage"
	bolt "go.etcd.io/bbolt"
)

var (
	visitedBucket = []byte("visited")
	cookieBucket  = []byte("cookies")
)

// BoltStorage is a colly storage backend on bbolt. Cookies are kept per host
// so consent cookies survive between runs.
type BoltStorage struct {
	Path string
	db   *bolt.DB
	mu   sync.RWMutex
}

func NewBoltStorage(path string) *BoltStorage {
	return &BoltStorage{Path: path}
}

func (s *BoltStorage) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create cookie db dir: %w", err)
	}

	db, err := bolt.Open(s.Path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open cookie db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{visitedBucket, cookieBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("create buckets: %w", err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

func visitKey(requestID uint64) []byte {
	return []byte(strconv.FormatUint(requestID, 16))
}

func (s *BoltStorage) Visited(requestID uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(visitedBucket).Put(visitKey(requestID), []byte{1})
	})
}

func (s *BoltStorage) IsVisited(requestID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var visited bool
	err := s.db.View(func(tx *bolt.Tx) error {
		visited = tx.Bucket(visitedBucket).Get(visitKey(requestID)) != nil
		return nil
	})
	return visited, err
}

func (s *BoltStorage) Cookies(u *url.URL) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cookies string
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(cookieBucket).Get([]byte(u.Host)); v != nil {
			cookies = string(v)
		}
		return nil
	})
	return cookies
}

func (s *BoltStorage) SetCookies(u *url.URL, cookies string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cookieBucket).Put([]byte(u.Host), []byte(cookies))
	})
}

func (s *BoltStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ storage.Storage = (*BoltStorage)(nil)
