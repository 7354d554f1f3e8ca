package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tutoria.org/internal/identity"
	"tutoria.org/internal/notify"
)

func newDirectory(t *testing.T) (*identity.Service, *identity.Account, *identity.Account) {
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
	return dir, tutor, student
}

func TestCreateCoercesUnknownKind(t *testing.T) {
	dir, tutor, _ := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	n, err := svc.Create(context.Background(), notify.Message{
		Kind: "telegrama", RecipientID: tutor.ID, Body: "hola",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.Kind != notify.KindSystem {
		t.Fatalf("unknown kind should coerce to sistema, got %s", n.Kind)
	}

	if _, err := svc.Create(context.Background(), notify.Message{Kind: "x", Body: "sin destino"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListForIconsAndNames(t *testing.T) {
	dir, tutor, student := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	if _, err := svc.Create(context.Background(), notify.Message{
		Kind: notify.KindNewFile, RecipientID: tutor.ID, SenderID: &student.ID,
		Body: "Nuevo archivo subido: memoria.pdf", RefKind: notify.RefFile, RefID: 1,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	views, err := svc.ListFor(context.Background(), tutor.ID, false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}
	if views[0].Icon != "📄" || views[0].SenderName != "Juan" {
		t.Fatalf("unexpected rendering: icon=%q sender=%q", views[0].Icon, views[0].SenderName)
	}
}

func TestListForLimitAndUnreadFilter(t *testing.T) {
	dir, tutor, _ := newDirectory(t)
	store := NewMemoryStore()
	svc := NewService(store, dir)

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	var first *Notification
	for i := 0; i < 60; i++ {
		n, err := svc.Create(context.Background(), notify.Message{
			Kind: notify.KindSystem, RecipientID: tutor.ID, Body: fmt.Sprintf("aviso %d", i),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i == 0 {
			first = n
		}
	}

	views, err := svc.ListFor(context.Background(), tutor.ID, false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != DefaultListLimit {
		t.Fatalf("default limit not applied: %d", len(views))
	}
	if views[0].Body != "aviso 59" {
		t.Fatalf("listing should be newest first, got %q", views[0].Body)
	}

	if _, err := svc.MarkRead(context.Background(), tutor.ID, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := svc.ListFor(context.Background(), tutor.ID, true, 100)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 59 {
		t.Fatalf("unread filter failed: %d", len(unread))
	}
}

func TestMarkReadOwnershipAndIdempotence(t *testing.T) {
	dir, tutor, student := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	n, err := svc.Create(context.Background(), notify.Message{
		Kind: notify.KindSystem, RecipientID: tutor.ID, Body: "hola",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.MarkRead(context.Background(), student.ID, n.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	read, err := svc.MarkRead(context.Background(), tutor.ID, n.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !read.Read || read.ReadAt == nil {
		t.Fatalf("notification not marked: %+v", read)
	}
	firstReadAt := *read.ReadAt

	again, err := svc.MarkRead(context.Background(), tutor.ID, n.ID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !again.ReadAt.Equal(firstReadAt) {
		t.Fatal("second read should not move fecha_lectura")
	}
}

func TestMarkAllReadAndCounters(t *testing.T) {
	dir, tutor, _ := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), notify.Message{
			Kind: notify.KindNewFile, RecipientID: tutor.ID, Body: "archivo",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := svc.UnreadCount(context.Background(), tutor.ID)
	if err != nil || count != 3 {
		t.Fatalf("unread count: %d %v", count, err)
	}

	changed, err := svc.MarkAllRead(context.Background(), tutor.ID)
	if err != nil || changed != 3 {
		t.Fatalf("mark all read: %d %v", changed, err)
	}
	if changed, err = svc.MarkAllRead(context.Background(), tutor.ID); err != nil || changed != 0 {
		t.Fatalf("second mark all read should change nothing: %d %v", changed, err)
	}

	sum, err := svc.SummaryFor(context.Background(), tutor.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 3 || sum.Unread != 0 || sum.ByKind[notify.KindNewFile] != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestDeleteAndPurge(t *testing.T) {
	dir, tutor, student := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	var kept *Notification
	for i := 0; i < 3; i++ {
		n, err := svc.Create(context.Background(), notify.Message{
			Kind: notify.KindSystem, RecipientID: tutor.ID, Body: "aviso",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		kept = n
	}

	if err := svc.Delete(context.Background(), student.ID, kept.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), tutor.ID, kept.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.MarkAllRead(context.Background(), tutor.ID); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if _, err := svc.Create(context.Background(), notify.Message{
		Kind: notify.KindSystem, RecipientID: tutor.ID, Body: "fresco",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := svc.Purge(context.Background(), tutor.ID, true)
	if err != nil || removed != 2 {
		t.Fatalf("purge read only: %d %v", removed, err)
	}
	removed, err = svc.Purge(context.Background(), tutor.ID, false)
	if err != nil || removed != 1 {
		t.Fatalf("purge all: %d %v", removed, err)
	}
}

func TestBroadcast(t *testing.T) {
	dir, tutor, student := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	delivered, err := svc.Broadcast(context.Background(), "Mantenimiento el viernes", "", &tutor.ID)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	// The sender is skipped.
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}

	views, err := svc.ListFor(context.Background(), student.ID, false, 0)
	if err != nil || len(views) != 1 {
		t.Fatalf("student should have the broadcast: %d %v", len(views), err)
	}
	if views[0].Kind != notify.KindSystem {
		t.Fatalf("default broadcast kind should be sistema, got %s", views[0].Kind)
	}

	if _, err := svc.Broadcast(context.Background(), "  ", "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBroadcastKind(t *testing.T) {
	dir, _, student := newDirectory(t)
	svc := NewService(NewMemoryStore(), dir)

	if _, err := svc.Broadcast(context.Background(), "Cita general reprogramada", notify.KindAppointmentRequested, nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	// Unknown kinds fall back to sistema, same as Create.
	if _, err := svc.Broadcast(context.Background(), "Aviso", "urgentisimo", nil); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	views, err := svc.ListFor(context.Background(), student.ID, false, 0)
	if err != nil || len(views) != 2 {
		t.Fatalf("student should have both broadcasts: %d %v", len(views), err)
	}
	// Newest first.
	if views[0].Kind != notify.KindSystem || views[1].Kind != notify.KindAppointmentRequested {
		t.Fatalf("unexpected kinds: %s %s", views[0].Kind, views[1].Kind)
	}
}
