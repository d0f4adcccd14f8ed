// Package cache is the in-process response cache in front of marketplace
// reads.
//
// Entries are never invalidated by writes. A vendor registered or edited after
// a listing was cached stays invisible on that listing until the entry's TTL
// elapses; the per-prefix TTLs below are the accepted staleness window for
// each read path.
package cache

import (
	"container/list"
	"net/url"
	"sync"
	"time"
)

// Key prefixes of the cached read paths.
const (
	PrefixVendors      = "vendors"
	PrefixVendorDetail = "vendor"
	PrefixEvents       = "events"
	PrefixCommunity    = "community"
)

// TTLs per read path.
const (
	VendorsTTL      = 5 * time.Minute
	VendorDetailTTL = 10 * time.Minute
	EventsTTL       = 10 * time.Minute
	CommunityTTL    = 2 * time.Minute
	DefaultTTL      = 5 * time.Minute
)

// DefaultMaxEntries bounds the store when no size is configured.
const DefaultMaxEntries = 100

var ttlByPrefix = map[string]time.Duration{
	PrefixVendors:      VendorsTTL,
	PrefixVendorDetail: VendorDetailTTL,
	PrefixEvents:       EventsTTL,
	PrefixCommunity:    CommunityTTL,
}

// TTLFor returns the TTL configured for a key prefix, or DefaultTTL.
func TTLFor(prefix string) time.Duration {
	if ttl, ok := ttlByPrefix[prefix]; ok {
		return ttl
	}
	return DefaultTTL
}

type entry struct {
	key        string
	payload    []byte
	insertedAt time.Time
	ttl        time.Duration
	elem       *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Store is a bounded TTL key/value store. When full, the oldest inserted
// entry is evicted; reads do not refresh an entry's position.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      *list.List
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

type Option func(*Store)

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		order:      list.New(),
		maxEntries: DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the payload for key while it is within its TTL. An expired
// entry is removed by the lookup that finds it.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		s.remove(e)
		return nil, false
	}
	return e.payload, true
}

// Set stores payload under key. ttl <= 0 selects the store default. Setting an
// existing key replaces it as a fresh insertion.
func (s *Store) Set(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.remove(old)
	}
	if len(s.entries) >= s.maxEntries {
		if oldest := s.order.Front(); oldest != nil {
			s.remove(oldest.Value.(*entry))
		}
	}

	e := &entry{key: key, payload: payload, insertedAt: s.now(), ttl: ttl}
	e.elem = s.order.PushBack(e)
	s.entries[key] = e
}

// Delete removes key. Maintenance use only.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.remove(e)
	}
}

// Clear drops every entry. Maintenance use only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.order.Init()
}

// Len counts stored entries, including expired ones not yet read.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) remove(e *entry) {
	s.order.Remove(e.elem)
	delete(s.entries, e.key)
}

// GenerateKey builds "prefix:a=1&b=2" with params sorted by name and values
// query-escaped, so the same parameters in any order produce the same key and
// a value containing '&' or '=' cannot impersonate another parameter.
func GenerateKey(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix
	}

	values := make(url.Values, len(params))
	for name, v := range params {
		values.Set(name, v)
	}
	return prefix + ":" + values.Encode()
}
