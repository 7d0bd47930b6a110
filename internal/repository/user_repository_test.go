package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/yourorg/jobboard/internal/domain"
)

func newTestUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:        "user_abc123",
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateWithSettingsInsertsUserAndSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_notification_settings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresUserRepository(db, slog.Default())
	created, err := repo.CreateWithSettings(context.Background(), newTestUser())
	if err != nil {
		t.Fatalf("CreateWithSettings returned error: %v", err)
	}
	if !created {
		t.Fatal("expected created true for a fresh insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithSettingsPrimaryKeyRaceIsSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_pkey"})
	mock.ExpectRollback()

	repo := NewPostgresUserRepository(db, slog.Default())
	created, err := repo.CreateWithSettings(context.Background(), newTestUser())
	if err != nil {
		t.Fatalf("primary-key conflict should be treated as already created, got error: %v", err)
	}
	if created {
		t.Fatal("expected created false when the row already exists")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithSettingsEmailConflictSurfacesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	repo := NewPostgresUserRepository(db, slog.Default())
	created, err := repo.CreateWithSettings(context.Background(), newTestUser())
	if err == nil {
		t.Fatal("expected an error when a different row holds the email")
	}
	if created {
		t.Fatal("expected created false on email conflict")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithSettingsDuplicateDeliveryNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewPostgresUserRepository(db, slog.Default())
	created, err := repo.CreateWithSettings(context.Background(), newTestUser())
	if err != nil {
		t.Fatalf("duplicate delivery should not error: %v", err)
	}
	if created {
		t.Fatal("expected created false when the insert was skipped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
