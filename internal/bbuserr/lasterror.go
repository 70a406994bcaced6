package bbuserr

import "sync"

// lastErrors backs the diagnostic "last error" slot. The original C
// implementation keys this off thread-local storage; Go has no equivalent,
// so here it is keyed by an opaque per-caller token instead (see
// DESIGN.md's Open Question resolution). This is a stub surface for the
// out-of-scope client-side convenience library, not used by the daemon
// core itself.
var (
	lastErrMu sync.Mutex
	lastErrs  = map[uint64]error{}
)

// SetLastError records err as the most recent error observed for token.
func SetLastError(token uint64, err error) {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	lastErrs[token] = err
}

// LastError returns the most recent error recorded for token, or nil.
func LastError(token uint64) error {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErrs[token]
}

// ClearLastError discards any recorded error for token.
func ClearLastError(token uint64) {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	delete(lastErrs, token)
}
