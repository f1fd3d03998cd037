package businessflow

import "sync"

// Per-email locks serialize concurrent submissions for the same address so
// two requests cannot each delete the other's freshly inserted unconfirmed
// rows. The store transaction covers a single submission; this covers the
// interleaving between submissions.
var (
	emailLocksMu sync.Mutex
	emailLocks   = make(map[string]*emailLock)
)

type emailLock struct {
	mu   sync.Mutex
	refs int
}

func lockEmail(email string) {
	emailLocksMu.Lock()
	l, ok := emailLocks[email]
	if !ok {
		l = &emailLock{}
		emailLocks[email] = l
	}
	l.refs++
	emailLocksMu.Unlock()

	l.mu.Lock()
}

func unlockEmail(email string) {
	emailLocksMu.Lock()
	l, ok := emailLocks[email]
	if ok {
		l.refs--
		if l.refs == 0 {
			delete(emailLocks, email)
		}
	}
	emailLocksMu.Unlock()

	if ok {
		l.mu.Unlock()
	}
}
