package sessions

import (
	"encoding/hex"
	"sync"
)

// saltLedger records challenge salts already consumed for each token, so a
// captured (salt, digest) pair cannot be replayed. Salts are remembered for
// the token's whole lifetime and dropped when the token is rotated or
// revoked; there is no time-based expiry, because an expired entry would
// re-open the replay it was recorded to block. A per-token cap bounds
// memory; at the cap further challenges are rejected (fail closed) rather
// than forgetting old salts.
type saltLedger struct {
	mu          sync.Mutex
	maxPerToken int
	seen        map[string]map[string]struct{}
}

func newSaltLedger(maxPerToken int) *saltLedger {
	return &saltLedger{
		maxPerToken: maxPerToken,
		seen:        make(map[string]map[string]struct{}),
	}
}

// Remember records the salt as consumed for the token. It returns false if
// the salt was already used or the token's ledger is full.
func (l *saltLedger) Remember(token string, salt []byte) bool {
	key := hex.EncodeToString(salt)

	l.mu.Lock()
	defer l.mu.Unlock()

	salts := l.seen[token]
	if salts == nil {
		salts = make(map[string]struct{})
		l.seen[token] = salts
	}

	if _, used := salts[key]; used {
		return false
	}
	if len(salts) >= l.maxPerToken {
		return false
	}

	salts[key] = struct{}{}
	return true
}

// Forget drops every salt remembered for the token. Called when the token
// itself stops being valid.
func (l *saltLedger) Forget(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, token)
}
