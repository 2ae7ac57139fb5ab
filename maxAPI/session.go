package maxAPI

import (
	"sync"

	"schoolRecords/auth"
)

// sessionStore keeps the token issued to each messenger user after /login.
// Expired or tampered tokens are dropped on read.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[int64]string
	issuer *auth.TokenIssuer
}

func newSessionStore(issuer *auth.TokenIssuer) *sessionStore {
	return &sessionStore{tokens: make(map[int64]string), issuer: issuer}
}

func (s *sessionStore) Put(maxUserID int64, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[maxUserID] = token
}

func (s *sessionStore) Get(maxUserID int64) (*auth.Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[maxUserID]
	if !ok {
		return nil, false
	}
	claims, err := s.issuer.Parse(token)
	if err != nil {
		delete(s.tokens, maxUserID)
		return nil, false
	}
	return claims, true
}

func (s *sessionStore) Drop(maxUserID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, maxUserID)
}
