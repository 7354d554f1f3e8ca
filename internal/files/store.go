package files

import "context"

// Store describes persistence for submission records. Blob bytes live in a
// BlobStore; rows here only carry the metadata and review trail.
type Store interface {
	Create(ctx context.Context, s *Submission) error
	Find(ctx context.Context, id int64) (*Submission, error)
	// ByStudent returns one student's submissions, newest first when
	// newestFirst is set, oldest first otherwise.
	ByStudent(ctx context.Context, studentID int64, newestFirst bool) ([]*Submission, error)
	// ByTutor returns submissions assigned to a tutor, newest first,
	// optionally filtered by state.
	ByTutor(ctx context.Context, tutorID int64, state string) ([]*Submission, error)
	CountByState(ctx context.Context, tutorID int64) (map[string]int, error)
	Update(ctx context.Context, s *Submission) error
	Delete(ctx context.Context, id int64) error
}
