package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"surveyhub.org/internal/survey"
)

func TestFindMemberByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	now := time.Now().UTC()
	mock.ExpectQuery("select id, user_id, organization_id, role_id, created_at, updated_at.*from members.*where user_id = \\$1 and organization_id = \\$2").
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "organization_id", "role_id", "created_at", "updated_at"}).
			AddRow(int64(1), int64(42), int64(7), int64(3), now, now))

	member, err := store.FindMemberByUser(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("FindMemberByUser: %v", err)
	}
	if member.RoleID != 3 {
		t.Fatalf("unexpected member: %+v", member)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrganizationMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectQuery("select id, name, created_at, updated_at.*from organizations").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))

	if _, err := store.GetOrganization(context.Background(), 9); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOrganizationRowsAffected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	mock.ExpectExec("delete from organizations where id = \\$1").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteOrganization(context.Background(), 9); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestUpsertOverrideReplacesGrant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewStore(db)

	now := time.Now().UTC()
	mock.ExpectQuery("insert into member_survey_permissions.*on conflict \\(user_id, survey_id\\) do update").
		WithArgs(int64(42), int64(100), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "survey_id", "role_id", "created_at", "updated_at"}).
			AddRow(int64(5), int64(42), int64(100), int64(3), now, now))

	ov, err := store.UpsertOverride(context.Background(), 42, 100, 3)
	if err != nil {
		t.Fatalf("UpsertOverride: %v", err)
	}
	if ov.ID != 5 || ov.RoleID != 3 {
		t.Fatalf("unexpected override: %+v", ov)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
