package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
//
// Repositories called with the context passed to fn participate in the
// transaction. A nested ExecTx call reuses the outer transaction, so a
// logical operation either commits entirely or not at all.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
