package dynsql

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
)

// txContext pins one connection for the lifetime of a transaction. The done
// flag flips exactly once, on commit, rollback or abandonment, so the
// connection is released exactly once no matter which path wins.
type txContext struct {
	conn   Connection
	driver string
	logger *slog.Logger
	done   int32
}

func newTxContext(conn Connection, driver string, logger *slog.Logger) *txContext {
	tx := &txContext{conn: conn, driver: driver, logger: logger}
	// Safety net for transactions dropped without commit or rollback.
	// Explicit resolution clears this; see resolve.
	runtime.SetFinalizer(tx, (*txContext).abandon)
	return tx
}

func (tx *txContext) active() bool {
	return atomic.LoadInt32(&tx.done) == 0
}

// resolve marks the transaction finished. It reports whether this call was
// the one that finished it, in which case the caller owns the connection
// teardown.
func (tx *txContext) resolve() bool {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return false
	}
	runtime.SetFinalizer(tx, nil)
	return true
}

// abandon runs when an active transaction becomes unreachable. The caller
// it could report to is gone, so it rolls back in the background and logs.
// This is advisory cleanup, not a substitute for explicit resolution.
func (tx *txContext) abandon() {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return
	}
	conn, driver, logger := tx.conn, tx.driver, tx.logger
	go func() {
		ctx := context.Background()
		logger.Warn("transaction abandoned without commit or rollback, rolling back",
			"driver", driver)
		if err := conn.Rollback(ctx); err != nil {
			logger.Error("abandoned transaction rollback failed",
				"driver", driver, "error", err)
		}
		if err := conn.Close(); err != nil {
			logger.Error("abandoned transaction connection close failed",
				"driver", driver, "error", err)
		}
	}()
}
