package assignments

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"mailbridge/internal/platform/database"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	pool := database.NewTenantPool(db)
	return NewService(NewRepository(pool)), mock, func() { db.Close() }
}

func expectTenantContext(mock sqlmock.Sqlmock, orgID string) {
	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs(orgID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectTenantReset(mock sqlmock.Sqlmock) {
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestAssignUserToCampaignsReportsPerItemOutcome(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	expectTenantContext(mock, "org_1")
	mock.ExpectExec("INSERT INTO user_campaign_assignment").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_campaign_assignment").
		WillReturnError(errors.New("foreign key violation"))
	expectTenantReset(mock)

	result, err := service.AssignUserToCampaigns(context.Background(), CampaignAssignmentRequest{
		UserID:         "user_1",
		CampaignIDs:    []string{"camp_a", "camp_b"},
		AssignedBy:     "admin_1",
		OrganizationID: "org_1",
	})
	if err != nil {
		t.Fatalf("bulk assignment must not abort on per-item failure: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "camp_b" {
		t.Errorf("expected camp_b in failed items, got %+v", result.Failed)
	}
}

func TestAssignContactsDefaultsToManual(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	expectTenantContext(mock, "org_1")
	mock.ExpectExec("INSERT INTO user_contact_assignment").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTenantReset(mock)

	result, err := service.AssignContactsToUser(context.Background(), ContactAssignmentRequest{
		UserID:         "user_1",
		ContactIDs:     []string{"contact_1"},
		AssignedBy:     "admin_1",
		OrganizationID: "org_1",
	})
	if err != nil {
		t.Fatalf("AssignContactsToUser returned error: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestAutoAssignRoundRobinPicksLeastLoadedUser(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	expectTenantContext(mock, "org_1")
	mock.ExpectQuery("ORDER BY COUNT\\(uca.id\\) ASC").
		WithArgs("org_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user_light"))
	mock.ExpectExec("INSERT INTO user_contact_assignment").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTenantReset(mock)

	userID, err := service.AutoAssignRoundRobin(context.Background(), "org_1", "contact_1", "admin_1")
	if err != nil {
		t.Fatalf("AutoAssignRoundRobin returned error: %v", err)
	}
	if userID != "user_light" {
		t.Errorf("expected user_light assigned, got %q", userID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAutoAssignRoundRobinNoUsers(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	expectTenantContext(mock, "org_1")
	mock.ExpectQuery("ORDER BY COUNT\\(uca.id\\) ASC").
		WithArgs("org_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectTenantReset(mock)

	_, err := service.AutoAssignRoundRobin(context.Background(), "org_1", "contact_1", "admin_1")
	if !errors.Is(err, ErrNoAssignableUsers) {
		t.Errorf("expected ErrNoAssignableUsers, got %v", err)
	}
}

func TestRemoveCampaignAssignmentIsSoft(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	expectTenantContext(mock, "org_1")
	mock.ExpectExec("SET status = 'inactive'").
		WithArgs("user_1", "camp_a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTenantReset(mock)

	removed, err := service.RemoveCampaignAssignment(context.Background(), "org_1", "user_1", "camp_a")
	if err != nil {
		t.Fatalf("RemoveCampaignAssignment returned error: %v", err)
	}
	if !removed {
		t.Error("expected assignment removed")
	}
}
