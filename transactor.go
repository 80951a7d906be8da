package stacsync

import "context"

// Transactor executes item transactions against a catalog.
type Transactor interface {
	Create(ctx context.Context, req TransactionRequest) error  // POST, new item
	Replace(ctx context.Context, req TransactionRequest) error // PUT, existing item
	Delete(ctx context.Context, req TransactionRequest) error  // DELETE, idempotent
	Do(ctx context.Context, op Operation, req TransactionRequest) error
}
