package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWithOrg_SetsAndResetsSessionVariable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id', \\$1, false\\)").
		WithArgs("org_123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	pool := NewTenantPool(db)
	err = pool.WithOrg(context.Background(), "org_123", func(q Querier) error {
		_, err := q.ExecContext(context.Background(), "SELECT 1")
		return err
	})
	if err != nil {
		t.Errorf("WithOrg returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithOrg_ResetsOnUnitOfWorkFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id', \\$1, false\\)").
		WithArgs("org_123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	pool := NewTenantPool(db)
	wantErr := errors.New("unit of work failed")
	err = pool.WithOrg(context.Background(), "org_123", func(q Querier) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected unit-of-work error, got %v", err)
	}

	// The reset must still have happened before the connection was released.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithAdmin_SetsOperatorRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("SELECT set_config\\('app.user_role', 'sb_admin', false\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET app.user_role").
		WillReturnResult(sqlmock.NewResult(0, 0))

	pool := NewTenantPool(db)
	err = pool.WithAdmin(context.Background(), func(q Querier) error {
		return nil
	})
	if err != nil {
		t.Errorf("WithAdmin returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
