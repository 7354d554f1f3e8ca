package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tutoria.org/internal/config"
	"tutoria.org/internal/identity"
	"tutoria.org/internal/ids"
	"tutoria.org/internal/notify"
	"tutoria.org/internal/obs"
)

// Service implements the submission workflow: students upload, tutors
// review. The assigned tutor is always derived from the student's account,
// never taken from the request.
type Service struct {
	store     Store
	blobs     BlobStore
	directory identity.Directory
	sink      notify.Sink
	now       func() time.Time
}

func NewService(store Store, blobs BlobStore, directory identity.Directory, sink notify.Sink) *Service {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Service{
		store:     store,
		blobs:     blobs,
		directory: directory,
		sink:      sink,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the blob and its record. Only pdf and zip names are
// accepted; the stored name is generated to be unique per student.
func (s *Service) Upload(ctx context.Context, studentID int64, originalName string, r io.Reader) (*Submission, error) {
	originalName = strings.TrimSpace(originalName)
	if originalName == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if !AllowedName(originalName) {
		return nil, ErrUnsupportedType
	}

	student, err := s.directory.GetAccount(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("resolve student %d: %w", studentID, err)
	}
	if student.Role != identity.RoleStudent {
		return nil, fmt.Errorf("%w: only students upload files", ErrForbidden)
	}
	if student.TutorID == nil {
		return nil, fmt.Errorf("%w: student has no assigned tutor", ErrInvalidInput)
	}

	now := s.now()
	kind := KindForName(originalName)
	storedName := fmt.Sprintf("%d_%s_%s.%s", studentID, now.Format("20060102_150405"), ids.RandomSuffix(), kind)

	size, err := s.blobs.Put(storedName, r)
	if err != nil {
		return nil, err
	}

	sub := &Submission{
		OriginalName: originalName,
		StoredName:   storedName,
		Kind:         kind,
		Size:         size,
		StudentID:    studentID,
		TutorID:      *student.TutorID,
		UploadedAt:   now,
		State:        StatePending,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		s.blobs.Remove(storedName)
		return nil, err
	}

	s.sink.Notify(ctx, notify.Message{
		Kind:        notify.KindNewFile,
		RecipientID: sub.TutorID,
		SenderID:    &sub.StudentID,
		Body:        fmt.Sprintf("Nuevo archivo subido: %s", originalName),
		RefKind:     notify.RefFile,
		RefID:       sub.ID,
	})
	return sub, nil
}

// ForStudent lists one student's submissions, newest first.
func (s *Service) ForStudent(ctx context.Context, studentID int64) ([]*Submission, error) {
	return s.store.ByStudent(ctx, studentID, true)
}

// ForTutor lists a tutor's assigned submissions (optionally filtered by
// state) decorated with student display data, plus per-state counts over
// the whole assignment.
func (s *Service) ForTutor(ctx context.Context, tutorID int64, state string) ([]TutorView, map[string]int, error) {
	if state != "" && !ValidState(state) {
		return nil, nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, state)
	}
	subs, err := s.store.ByTutor(ctx, tutorID, state)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.store.CountByState(ctx, tutorID)
	if err != nil {
		return nil, nil, err
	}

	views := make([]TutorView, 0, len(subs))
	names := make(map[int64]*identity.Account)
	for _, sub := range subs {
		view := TutorView{Submission: *sub}
		student, ok := names[sub.StudentID]
		if !ok {
			// Best effort: a missing directory entry leaves the names blank.
			student, _ = s.directory.GetAccount(ctx, sub.StudentID)
			names[sub.StudentID] = student
		}
		if student != nil {
			view.StudentName = student.Name
			view.StudentUsername = student.Username
		}
		views = append(views, view)
	}
	return views, counts, nil
}

// Get returns one submission record.
func (s *Service) Get(ctx context.Context, id int64) (*Submission, error) {
	return s.store.Find(ctx, id)
}

// Download opens the stored blob for the owning student or the assigned
// tutor. The caller must close the reader.
func (s *Service) Download(ctx context.Context, callerID, id int64) (*Submission, io.ReadCloser, error) {
	sub, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if callerID != sub.StudentID && callerID != sub.TutorID {
		return nil, nil, ErrForbidden
	}
	rc, err := s.blobs.Open(sub.StoredName)
	if err != nil {
		return nil, nil, err
	}
	return sub, rc, nil
}

// AddFeedback records a review by the assigned tutor. Unknown states are
// coerced to "revisado"; the student is notified.
func (s *Service) AddFeedback(ctx context.Context, tutorID, id int64, fb Feedback) (*Submission, error) {
	sub, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TutorID != tutorID {
		// A non-assigned tutor cannot learn that the submission exists.
		return nil, ErrNotFound
	}
	state := fb.State
	if state != StateReviewed && state != StateNeedsChanges {
		state = StateReviewed
	}
	now := s.now()
	sub.Feedback = fb.Text
	sub.FeedbackAt = &now
	sub.State = state
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.Message{
		Kind:        notify.KindNewFeedback,
		RecipientID: sub.StudentID,
		SenderID:    &tutorID,
		Body:        fmt.Sprintf("Tu archivo '%s' ha sido revisado: %s", sub.OriginalName, state),
		RefKind:     notify.RefFile,
		RefID:       sub.ID,
	})
	return sub, nil
}

// Delete removes a submission and its blob. Only the owning student may
// delete. A blob that cannot be removed is logged and left behind: the
// record always goes.
func (s *Service) Delete(ctx context.Context, studentID, id int64) error {
	sub, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if sub.StudentID != studentID {
		return ErrForbidden
	}
	if err := s.blobs.Remove(sub.StoredName); err != nil && !errors.Is(err, ErrMissingBlob) {
		obs.LogEvent(config.ServiceFiles, "blob_remove_failed", map[string]any{
			"archivo_id":      id,
			"nombre_guardado": sub.StoredName,
			"error":           err.Error(),
		})
	}
	return s.store.Delete(ctx, id)
}

// History returns the chronological delivery record of one student.
func (s *Service) History(ctx context.Context, studentID int64) (*History, error) {
	subs, err := s.store.ByStudent(ctx, studentID, false)
	if err != nil {
		return nil, err
	}
	h := &History{
		StudentID: studentID,
		Entries:   make([]Submission, 0, len(subs)),
		Total:     len(subs),
	}
	for _, sub := range subs {
		h.Entries = append(h.Entries, *sub)
	}
	if len(subs) > 0 {
		last := subs[len(subs)-1].UploadedAt
		h.LastUpload = &last
	}
	return h, nil
}
