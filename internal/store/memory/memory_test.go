package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"surveyhub.org/internal/job"
	"surveyhub.org/internal/survey"
)

func newFixture(t *testing.T) (*Store, *survey.Service, *job.Worker) {
	t.Helper()
	store := NewStore()
	svc, err := survey.NewService(store, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	worker, err := job.NewWorker(store, store)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	return store, svc, worker
}

func TestOrganizationDeletionCascade(t *testing.T) {
	ctx := context.Background()
	store, svc, worker := newFixture(t)

	org, err := svc.CreateOrganization(ctx, "Acme Research")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	other, err := svc.CreateOrganization(ctx, "Control Group")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}

	alice, err := svc.CreateUser(ctx, "alice@example.com", "Alice", "hash", survey.UserStatusActive)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bob, err := svc.CreateUser(ctx, "bob@example.com", "Bob", "hash", survey.UserStatusActive)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.CreateMember(ctx, alice.ID, org.ID, 4); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	if _, err := svc.CreateMember(ctx, bob.ID, org.ID, 2); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	// Bob also belongs to the other organization; that row must survive.
	outside, err := svc.CreateMember(ctx, bob.ID, other.ID, 1)
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	if _, err := svc.CreateSurvey(ctx, org.ID, "Quarterly pulse", ""); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	if _, err := svc.CreateSurvey(ctx, org.ID, "Exit interviews", ""); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	kept, err := svc.CreateSurvey(ctx, other.ID, "Unrelated", "")
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}

	if err := svc.DeleteOrganization(ctx, org.ID); err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}

	// The parent row is gone immediately; children wait for the worker.
	if _, err := store.GetOrganization(ctx, org.ID); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("expected organization gone, got %v", err)
	}
	pending, err := store.PendingJobs(ctx)
	if err != nil {
		t.Fatalf("PendingJobs: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending))
	}
	if pending[0].Table != job.TableMembers || pending[1].Table != job.TableSurveys {
		t.Fatalf("unexpected job tables: %s, %s", pending[0].Table, pending[1].Table)
	}

	worker.RunOnce(ctx)
	worker.RunOnce(ctx)

	pending, err = store.PendingJobs(ctx)
	if err != nil {
		t.Fatalf("PendingJobs: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("queue not drained: %d jobs left", len(pending))
	}

	members, err := store.ListMembers(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("members of deleted organization survived: %+v", members)
	}
	surveys, err := store.ListSurveys(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if len(surveys) != 0 {
		t.Fatalf("surveys of deleted organization survived: %+v", surveys)
	}

	// Rows in the untouched organization are unaffected.
	if _, err := store.GetMember(ctx, outside.ID); err != nil {
		t.Fatalf("unrelated membership removed: %v", err)
	}
	if _, err := store.GetSurvey(ctx, kept.ID); err != nil {
		t.Fatalf("unrelated survey removed: %v", err)
	}
}

func TestUserDeletionCascade(t *testing.T) {
	ctx := context.Background()
	store, svc, worker := newFixture(t)

	org, _ := svc.CreateOrganization(ctx, "Acme Research")
	user, err := svc.CreateUser(ctx, "carol@example.com", "Carol", "hash", survey.UserStatusActive)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateMember(ctx, user.ID, org.ID, 2); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	sv, err := svc.CreateSurvey(ctx, org.ID, "Onboarding", "")
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	if _, err := svc.GrantOverride(ctx, user.ID, sv.ID, 3); err != nil {
		t.Fatalf("GrantOverride: %v", err)
	}

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	for i := 0; i < 2; i++ {
		worker.RunOnce(ctx)
	}

	if _, err := store.FindMemberByUser(ctx, user.ID, org.ID); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("membership of deleted user survived: %v", err)
	}
	if _, err := store.FindOverride(ctx, user.ID, sv.ID); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("override of deleted user survived: %v", err)
	}
	// The survey itself is untouched.
	if _, err := store.GetSurvey(ctx, sv.ID); err != nil {
		t.Fatalf("survey removed by user deletion: %v", err)
	}
}

func TestSurveyDeletionCascade(t *testing.T) {
	ctx := context.Background()
	store, svc, worker := newFixture(t)

	org, _ := svc.CreateOrganization(ctx, "Acme Research")
	user, _ := svc.CreateUser(ctx, "dave@example.com", "Dave", "hash", survey.UserStatusActive)
	sv, err := svc.CreateSurvey(ctx, org.ID, "Retention", "")
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	otherSurvey, _ := svc.CreateSurvey(ctx, org.ID, "Other", "")
	if _, err := svc.GrantOverride(ctx, user.ID, sv.ID, 4); err != nil {
		t.Fatalf("GrantOverride: %v", err)
	}
	keptOverride, err := svc.GrantOverride(ctx, user.ID, otherSurvey.ID, 2)
	if err != nil {
		t.Fatalf("GrantOverride: %v", err)
	}

	if err := svc.DeleteSurvey(ctx, sv.ID); err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}
	worker.RunOnce(ctx)

	if _, err := store.FindOverride(ctx, user.ID, sv.ID); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("override of deleted survey survived: %v", err)
	}
	if _, err := store.FindOverride(ctx, keptOverride.UserID, keptOverride.SurveyID); err != nil {
		t.Fatalf("override on other survey removed: %v", err)
	}
}

func TestEnqueueRejectsUnknownTable(t *testing.T) {
	store := NewStore()
	_, err := store.Enqueue(context.Background(), job.Table("accounts"), job.ByUser(1))
	if !errors.Is(err, job.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	_, err = store.Enqueue(context.Background(), job.TableSurveys, job.ByUser(1))
	if !errors.Is(err, job.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestUpsertOverrideReplacesRole(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first, err := store.UpsertOverride(ctx, 10, 20, 2)
	if err != nil {
		t.Fatalf("UpsertOverride: %v", err)
	}
	second, err := store.UpsertOverride(ctx, 10, 20, 4)
	if err != nil {
		t.Fatalf("UpsertOverride: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new row: %d vs %d", second.ID, first.ID)
	}
	if second.RoleID != 4 {
		t.Fatalf("role not replaced: %d", second.RoleID)
	}
}

func TestEnqueuePublishesEvent(t *testing.T) {
	events := job.NewBroadcast()
	store := NewStore(WithEvents(events))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := events.Subscribe(ctx)

	if _, err := store.Enqueue(context.Background(), job.TableMembers, job.ByUser(3)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != job.EventEnqueued {
			t.Fatalf("expected enqueued event, got %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
