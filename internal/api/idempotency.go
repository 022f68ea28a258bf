package api

import (
	"errors"
	"sync"
)

var (
	ErrIdempotencyConflict = errors.New("request in progress")
	ErrIdempotencyMismatch = errors.New("key reuse with mismatched payload")
)

const (
	idemInProgress = "in_progress"
	idemCompleted  = "completed"
)

type idempotencyRecord struct {
	requestHash    string
	status         string
	responseStatus int
	responseBody   []byte
}

// idempotencyStore keeps transfer idempotency keys for the process lifetime.
type idempotencyStore struct {
	mu   sync.Mutex
	recs map[string]*idempotencyRecord
}

func newIdempotencyStore() *idempotencyStore {
	return &idempotencyStore{recs: make(map[string]*idempotencyRecord)}
}

// begin reserves key for reqHash. It returns the stored record when the key
// already completed, ErrIdempotencyConflict while the first request is still
// in flight, and ErrIdempotencyMismatch when the key is reused with a
// different payload.
func (s *idempotencyStore) begin(key, reqHash string) (*idempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[key]; ok {
		if rec.requestHash != reqHash {
			return nil, ErrIdempotencyMismatch
		}
		if rec.status != idemCompleted {
			return nil, ErrIdempotencyConflict
		}
		cp := *rec
		return &cp, nil
	}
	s.recs[key] = &idempotencyRecord{requestHash: reqHash, status: idemInProgress}
	return nil, nil
}

// complete stores the response so later requests with the same key replay it.
func (s *idempotencyStore) complete(key string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return
	}
	rec.status = idemCompleted
	rec.responseStatus = status
	rec.responseBody = body
}

// release frees a reservation whose transfer did not reach a storable
// outcome, so the caller may retry with the same key.
func (s *idempotencyStore) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key)
}
