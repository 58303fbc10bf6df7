// SPDX-License-Identifier: GPL-3.0-or-later

package zabbixgraph

import (
	"encoding/json"
	"strconv"
	"sync"
)

// credentialKey identifies a cached session token. Username is empty in
// token mode, but token mode never reaches the store.
func credentialKey(serverURL, username string) string {
	return serverURL + "|" + username
}

// metadataKey identifies a cached metadata entry. Returns "" when the graph
// id is not known yet; callers must skip caching then.
func metadataKey(serverURL string, graphID int64) string {
	if graphID <= 0 {
		return ""
	}
	return serverURL + "|" + strconv.FormatInt(graphID, 10)
}

// sessionStore maps credential keys to session tokens issued by user.login.
// Safe for concurrent use by overlapping requests.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]string)}
}

func (s *sessionStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[key]
	return tok, ok
}

func (s *sessionStore) set(key, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token
}

func (s *sessionStore) evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
}

// graphMetadata is a cached chart description: the graph title and the raw
// graphitem.get payload, passed through to the result untouched.
type graphMetadata struct {
	title string
	items json.RawMessage
}

// metadataStore maps metadata keys to graph metadata. Entries are replaced
// whole; safe for concurrent use by overlapping requests.
type metadataStore struct {
	mu      sync.Mutex
	entries map[string]*graphMetadata
}

func newMetadataStore() *metadataStore {
	return &metadataStore{entries: make(map[string]*graphMetadata)}
}

func (s *metadataStore) get(key string) (*graphMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.entries[key]
	return meta, ok
}

func (s *metadataStore) set(key string, meta *graphMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = meta
}

func (s *metadataStore) evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
