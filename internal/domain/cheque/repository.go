package cheque

import "context"

// Repository is the read side of the cheque record store. Implementations
// return an immutable snapshot; callers never mutate what they receive.
type Repository interface {
	// List returns every cheque ordered by id.
	List(ctx context.Context) ([]*Cheque, error)
	// FindByID returns ErrCodeChequeNotFound when id is unknown.
	FindByID(ctx context.Context, id string) (*Cheque, error)
	// Version identifies the current snapshot. It changes whenever any record
	// changes and is used to key cached pass results.
	Version(ctx context.Context) (string, error)
}
