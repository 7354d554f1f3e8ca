package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service implements account management on top of a Store. Password hashing
// is injected so the package stays free of crypto choices.
type Service struct {
	store Store
	hash  func(password string) (string, error)
	now   func() time.Time
}

var _ Directory = (*Service)(nil)

func NewService(store Store, hash func(string) (string, error)) *Service {
	return &Service{
		store: store,
		hash:  hash,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account. Students must reference an existing tutor;
// tutors never carry a tutor reference.
func (s *Service) Register(ctx context.Context, req NewAccount) (*Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Name == "" || req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: nombre, email, username and password are required", ErrInvalidInput)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	var tutorID *int64
	if req.Role == RoleStudent {
		if req.TutorID == nil {
			return nil, fmt.Errorf("%w: students must have an assigned tutor", ErrInvalidInput)
		}
		if err := s.requireTutor(ctx, *req.TutorID); err != nil {
			return nil, err
		}
		tutorID = req.TutorID
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		TutorID:      tutorID,
		RegisteredAt: s.now(),
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns the account together with its tutor (students) or linked
// students (tutors). A missing tutor row degrades to a bare profile rather
// than failing the read.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	account, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := &Profile{Account: *account}

	switch account.Role {
	case RoleStudent:
		if account.TutorID != nil {
			if tutor, err := s.store.Find(ctx, *account.TutorID); err == nil {
				sum := tutor.Summarize()
				profile.Tutor = &sum
			}
		}
	case RoleTutor:
		students, err := s.store.StudentsOf(ctx, id)
		if err != nil {
			return nil, err
		}
		profile.Students = summarize(students)
	}
	return profile, nil
}

// List returns accounts, optionally filtered by role.
func (s *Service) List(ctx context.Context, role Role) ([]*Account, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.store.List(ctx, role)
}

// Update applies a partial update. Re-linking a student validates the new
// tutor; tutor accounts cannot be linked to anyone.
func (s *Service) Update(ctx context.Context, id int64, upd AccountUpdate) (*Account, error) {
	account, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		account.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil && strings.TrimSpace(*upd.Email) != "" {
		account.Email = strings.TrimSpace(strings.ToLower(*upd.Email))
	}
	if upd.TutorID != nil {
		if account.Role != RoleStudent {
			return nil, fmt.Errorf("%w: only students can be linked to a tutor", ErrInvalidInput)
		}
		if err := s.requireTutor(ctx, *upd.TutorID); err != nil {
			return nil, err
		}
		account.TutorID = upd.TutorID
	}
	if err := s.store.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes an account. Tutors with linked students are protected.
func (s *Service) Delete(ctx context.Context, id int64) error {
	account, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if account.Role == RoleTutor {
		n, err := s.store.CountStudents(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasDependents
		}
	}
	return s.store.Delete(ctx, id)
}

// Tutors returns every tutor as a compact summary.
func (s *Service) Tutors(ctx context.Context) ([]Summary, error) {
	tutors, err := s.store.List(ctx, RoleTutor)
	if err != nil {
		return nil, err
	}
	return summarize(tutors), nil
}

// StudentsOf returns the roster of one tutor.
func (s *Service) StudentsOf(ctx context.Context, tutorID int64) (*Roster, error) {
	tutor, err := s.store.Find(ctx, tutorID)
	if err != nil {
		return nil, ErrTutorNotFound
	}
	if tutor.Role != RoleTutor {
		return nil, ErrTutorNotFound
	}
	students, err := s.store.StudentsOf(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	return &Roster{
		Tutor:    tutor.Summarize(),
		Students: summarize(students),
		Total:    len(students),
	}, nil
}

// AssignTutor re-links a student to a tutor.
func (s *Service) AssignTutor(ctx context.Context, studentID, tutorID int64) error {
	student, err := s.store.Find(ctx, studentID)
	if err != nil {
		return err
	}
	if student.Role != RoleStudent {
		return fmt.Errorf("%w: account %d is not a student", ErrInvalidInput, studentID)
	}
	if err := s.requireTutor(ctx, tutorID); err != nil {
		return err
	}
	student.TutorID = &tutorID
	return s.store.Update(ctx, student)
}

// GetAccount implements Directory.
func (s *Service) GetAccount(ctx context.Context, id int64) (*Account, error) {
	return s.store.Find(ctx, id)
}

// ListAccounts implements Directory.
func (s *Service) ListAccounts(ctx context.Context, role Role) ([]*Account, error) {
	return s.store.List(ctx, role)
}

func (s *Service) requireTutor(ctx context.Context, id int64) error {
	tutor, err := s.store.Find(ctx, id)
	if err != nil {
		return ErrTutorNotFound
	}
	if tutor.Role != RoleTutor {
		return ErrTutorNotFound
	}
	return nil
}

func summarize(accounts []*Account) []Summary {
	out := make([]Summary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Summarize())
	}
	return out
}
