package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"tutoria.org/internal/identity"
	"tutoria.org/internal/notify"
)

type fixture struct {
	svc      *Service
	store    *MemoryStore
	blobs    *MemoryBlobStore
	sink     *notify.Recorder
	tutor    *identity.Account
	student  *identity.Account
	stranger *identity.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := identity.NewMemoryStore()
	dir := identity.NewService(accounts, func(p string) (string, error) { return p, nil })

	tutor, err := dir.Register(context.Background(), identity.NewAccount{
		Name: "Tutor Uno", Email: "tutor1@usal.es", Username: "tutor1",
		Password: "pw", Role: identity.RoleTutor,
	})
	if err != nil {
		t.Fatalf("register tutor: %v", err)
	}
	student, err := dir.Register(context.Background(), identity.NewAccount{
		Name: "Juan", Email: "juan@usal.es", Username: "juan",
		Password: "pw", Role: identity.RoleStudent, TutorID: &tutor.ID,
	})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	stranger, err := dir.Register(context.Background(), identity.NewAccount{
		Name: "Maria", Email: "maria@usal.es", Username: "maria",
		Password: "pw", Role: identity.RoleStudent, TutorID: &tutor.ID,
	})
	if err != nil {
		t.Fatalf("register stranger: %v", err)
	}

	store := NewMemoryStore()
	blobs := NewMemoryBlobStore()
	sink := notify.NewRecorder()
	return &fixture{
		svc:      NewService(store, blobs, dir, sink),
		store:    store,
		blobs:    blobs,
		sink:     sink,
		tutor:    tutor,
		student:  student,
		stranger: stranger,
	}
}

func (f *fixture) upload(t *testing.T, name, content string) *Submission {
	t.Helper()
	sub, err := f.svc.Upload(context.Background(), f.student.ID, name, strings.NewReader(content))
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return sub
}

func TestUploadDerivesTutorAndNotifies(t *testing.T) {
	f := newFixture(t)

	sub := f.upload(t, "memoria.pdf", "contenido")

	if sub.TutorID != f.tutor.ID {
		t.Fatalf("tutor not derived from student record: %d", sub.TutorID)
	}
	if sub.State != StatePending || sub.Kind != "pdf" || sub.Size != int64(len("contenido")) {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if !strings.HasSuffix(sub.StoredName, ".pdf") || !strings.HasPrefix(sub.StoredName, "2_") {
		t.Fatalf("unexpected stored name: %s", sub.StoredName)
	}

	msgs := f.sink.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one notification, got %d", len(msgs))
	}
	if msgs[0].Kind != notify.KindNewFile || msgs[0].RecipientID != f.tutor.ID || msgs[0].RefID != sub.ID {
		t.Fatalf("unexpected notification: %+v", msgs[0])
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), f.student.ID, "virus.exe", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadRejectsTutorCaller(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), f.tutor.ID, "memoria.pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAddFeedback(t *testing.T) {
	f := newFixture(t)
	sub := f.upload(t, "memoria.pdf", "contenido")

	// A submission not assigned to the caller looks like it does not exist.
	if _, err := f.svc.AddFeedback(context.Background(), f.stranger.ID, sub.ID, Feedback{Text: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-assigned tutor, got %v", err)
	}

	// Unknown state coerces to revisado.
	reviewed, err := f.svc.AddFeedback(context.Background(), f.tutor.ID, sub.ID, Feedback{Text: "Bien", State: "aprobadisimo"})
	if err != nil {
		t.Fatalf("add feedback: %v", err)
	}
	if reviewed.State != StateReviewed || reviewed.Feedback != "Bien" || reviewed.FeedbackAt == nil {
		t.Fatalf("unexpected review: %+v", reviewed)
	}

	msgs := f.sink.Messages()
	last := msgs[len(msgs)-1]
	if last.Kind != notify.KindNewFeedback || last.RecipientID != f.student.ID {
		t.Fatalf("unexpected feedback notification: %+v", last)
	}
}

func TestDownloadAuthorization(t *testing.T) {
	f := newFixture(t)
	sub := f.upload(t, "memoria.pdf", "contenido")

	if _, _, err := f.svc.Download(context.Background(), f.stranger.ID, sub.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	for _, caller := range []int64{f.student.ID, f.tutor.ID} {
		got, rc, err := f.svc.Download(context.Background(), caller, sub.ID)
		if err != nil {
			t.Fatalf("download as %d: %v", caller, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != "contenido" || got.ID != sub.ID {
			t.Fatalf("unexpected download payload: %q", data)
		}
	}

	// Blob gone but record present.
	if err := f.blobs.Remove(sub.StoredName); err != nil {
		t.Fatalf("remove blob: %v", err)
	}
	if _, _, err := f.svc.Download(context.Background(), f.student.ID, sub.ID); !errors.Is(err, ErrMissingBlob) {
		t.Fatalf("expected ErrMissingBlob, got %v", err)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	f := newFixture(t)
	sub := f.upload(t, "memoria.zip", "zipzip")

	if err := f.svc.Delete(context.Background(), f.stranger.ID, sub.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.student.ID, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := f.blobs.Open(sub.StoredName); !errors.Is(err, ErrMissingBlob) {
		t.Fatalf("blob should be gone, got %v", err)
	}
}

// brokenBlobStore fails every Remove the way a damaged disk would.
type brokenBlobStore struct {
	*MemoryBlobStore
	removeErr error
}

func (b *brokenBlobStore) Remove(name string) error { return b.removeErr }

func TestDeleteSurvivesBlobRemoveFailure(t *testing.T) {
	f := newFixture(t)
	sub := f.upload(t, "memoria.pdf", "contenido")

	f.svc.blobs = &brokenBlobStore{MemoryBlobStore: f.blobs, removeErr: errors.New("disk sector error")}

	if err := f.svc.Delete(context.Background(), f.student.ID, sub.ID); err != nil {
		t.Fatalf("delete must not fail on blob removal: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
}

func TestHistoryOrdering(t *testing.T) {
	f := newFixture(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	f.svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Hour)
	}

	first := f.upload(t, "v1.pdf", "a")
	second := f.upload(t, "v2.pdf", "bb")

	h, err := f.svc.History(context.Background(), f.student.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.Total != 2 || h.Entries[0].ID != first.ID || h.Entries[1].ID != second.ID {
		t.Fatalf("history not chronological: %+v", h.Entries)
	}
	if h.LastUpload == nil || !h.LastUpload.Equal(second.UploadedAt) {
		t.Fatalf("unexpected last upload: %v", h.LastUpload)
	}

	// Newest first for the student listing.
	listing, err := f.svc.ForStudent(context.Background(), f.student.ID)
	if err != nil {
		t.Fatalf("for student: %v", err)
	}
	if listing[0].ID != second.ID {
		t.Fatalf("listing should be newest first: %+v", listing)
	}
}

func TestForTutorCountsAndNames(t *testing.T) {
	f := newFixture(t)
	sub := f.upload(t, "memoria.pdf", "contenido")
	f.upload(t, "anexo.zip", "zip")

	if _, err := f.svc.AddFeedback(context.Background(), f.tutor.ID, sub.ID, Feedback{Text: "ok", State: StateNeedsChanges}); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	views, counts, err := f.svc.ForTutor(context.Background(), f.tutor.ID, "")
	if err != nil {
		t.Fatalf("for tutor: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two views, got %d", len(views))
	}
	if views[0].StudentName != "Juan" || views[0].StudentUsername != "juan" {
		t.Fatalf("student names not resolved: %+v", views[0])
	}
	if counts[StatePending] != 1 || counts[StateNeedsChanges] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	pending, _, err := f.svc.ForTutor(context.Background(), f.tutor.ID, StatePending)
	if err != nil {
		t.Fatalf("filtered for tutor: %v", err)
	}
	if len(pending) != 1 || pending[0].State != StatePending {
		t.Fatalf("state filter failed: %+v", pending)
	}

	if _, _, err := f.svc.ForTutor(context.Background(), f.tutor.ID, "archivado"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown state, got %v", err)
	}
}
