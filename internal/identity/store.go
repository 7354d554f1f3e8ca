package identity

import "context"

// Store describes persistence for accounts. The identity service owns the
// accounts table; other services reach account data through Directory.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id int64) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	// List returns accounts ordered by display name; role "" means all.
	List(ctx context.Context, role Role) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id int64) error
	StudentsOf(ctx context.Context, tutorID int64) ([]*Account, error)
	CountStudents(ctx context.Context, tutorID int64) (int, error)
}

// Directory is the read-only account view other services depend on: the
// facts a bearer token cannot encode (the counterparty's role, the
// student→tutor link, display names, broadcast recipients). Satisfied by
// Service in-process and by Client over HTTP.
type Directory interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
	ListAccounts(ctx context.Context, role Role) ([]*Account, error)
}
