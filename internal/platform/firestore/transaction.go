package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

// Transactions back the status sweep's batch flip, so the retry and timeout
// budget is fixed rather than per-call: contention on booking documents is
// rare and a sweep pass retries safely at the caller level anyway.
const (
	txAttempts = 5
	txTimeout  = 15 * time.Second
)

// TxFunc is executed within a Firestore transaction. Every write issued
// through tx commits atomically or not at all.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// RunTransaction executes fn within a transaction on the provided client,
// bounding it with the package retry and timeout budget.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}

	txnCtx := ctx
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline || time.Until(deadline) > txTimeout {
		var cancel context.CancelFunc
		txnCtx, cancel = context.WithTimeout(ctx, txTimeout)
		defer cancel()
	}

	err := client.RunTransaction(txnCtx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, tx)
	}, firestore.MaxAttempts(txAttempts))

	return WrapError("transaction", err)
}
