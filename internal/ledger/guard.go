package ledger

import "sync/atomic"

// transferGuard serializes the operations that move funds out of custody
// (registration refunds and owner withdrawals). It is a plain
// non-reentrant flag: while held, any nested call into a guarded
// operation fails immediately with ErrReentrantCall instead of blocking.
// A counting lock would defeat the point — legitimate nested guarded
// calls never occur.
type transferGuard struct {
	locked atomic.Bool
}

// acquire takes the flag or rejects. The caller must release on every
// exit path (defer immediately after a successful acquire).
func (g *transferGuard) acquire() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *transferGuard) release() {
	g.locked.Store(false)
}
