package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/primeflash/flasharb/chain"
)

// NonceLedger is the process-wide sequence number source for outgoing
// transactions. Its lock must be held for the whole build-sign-send
// span of a submission, not just the counter update: a nonce is only
// valid if the transaction consuming it actually goes out before anyone
// else acquires the next one.
type NonceLedger struct {
	mu      sync.Mutex
	client  chain.Client
	account common.Address

	last  uint64
	held  bool
	fresh bool // last came from a resync and has not been handed out yet
}

func NewNonceLedger(client chain.Client, account common.Address) *NonceLedger {
	return &NonceLedger{
		client:  client,
		account: account,
	}
}

// Lock acquires the submission lock. Next, Rollback and Resync require
// it to be held.
func (l *NonceLedger) Lock() { l.mu.Lock() }

// Unlock releases the submission lock.
func (l *NonceLedger) Unlock() { l.mu.Unlock() }

// Next returns the nonce for the next transaction: the network's
// pending count when no local nonce is held, otherwise the held value
// plus one. This is the only place nonce state moves upward.
func (l *NonceLedger) Next(ctx context.Context) (uint64, error) {
	if !l.held {
		n, err := l.client.PendingNonceAt(ctx, l.account)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch pending nonce: %w", err)
		}
		l.last = n
		l.held = true
		return l.last, nil
	}
	if l.fresh {
		l.fresh = false
		return l.last, nil
	}
	l.last++
	return l.last, nil
}

// Rollback compensates for a transaction that mined with failure
// status: the local counter steps back one so the slot is retried next
// cycle. The on-chain slot is still consumed; only the local view moves.
func (l *NonceLedger) Rollback() {
	if !l.held {
		return
	}
	l.last--
	l.fresh = false
}

// Resync replaces the held value with a freshly fetched pending count
// after a submission error left local state suspect. The fetched value
// is handed out as-is by the next call to Next.
func (l *NonceLedger) Resync(ctx context.Context) error {
	n, err := l.client.PendingNonceAt(ctx, l.account)
	if err != nil {
		// Local state is unusable either way; force a refetch later.
		l.held = false
		l.fresh = false
		return fmt.Errorf("failed to resync nonce: %w", err)
	}
	l.last = n
	l.held = true
	l.fresh = true
	return nil
}

// Held reports the current local nonce state. Takes the lock, so it
// must not be called from inside a submission span.
func (l *NonceLedger) Held() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.held
}
