// Package memory is a process-local storage backend. Each owner's records
// live in their own shard guarded by its own lock, so operations of
// different owners never wait on each other. Unique constraints are
// checked under the shard's write lock at commit.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/storage"
)

type Store struct {
	now func() time.Time

	mu     sync.Mutex
	shards map[string]*shard
}

var _ storage.Repository = (*Store)(nil)

type shard struct {
	mu       sync.RWMutex
	sections map[string]*models.Section
	tasks    map[string]*models.Task
	articles map[string]*models.Article
}

func New() *Store {
	return &Store{
		now:    time.Now,
		shards: make(map[string]*shard),
	}
}

func (s *Store) shard(ownerID string) *shard {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shards[ownerID]
	if !ok {
		sh = &shard{
			sections: make(map[string]*models.Section),
			tasks:    make(map[string]*models.Task),
			articles: make(map[string]*models.Article),
		}
		s.shards[ownerID] = sh
	}
	return sh
}

// emptyShard stands in for owners that never created anything. Every
// mutation on it fails with ErrNotFound before touching its maps.
var emptyShard = &shard{}

// lookup returns the owner's shard without registering a new one. Only
// creates may add shards.
func (s *Store) lookup(ownerID string) *shard {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sh, ok := s.shards[ownerID]; ok {
		return sh
	}
	return emptyShard
}

func pull(ids []string, id string) ([]string, bool) {
	out := ids[:0:0]
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, found
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
