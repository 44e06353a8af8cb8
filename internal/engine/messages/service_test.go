package messages

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"mailbridge/internal/platform/database"
	"mailbridge/internal/platform/models"
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

func TestInsertAssignsID(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO message").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := service.Insert(context.Background(), &models.Message{
		OrganizationID: "org_1",
		CampaignID:     "local_1",
		FromEmail:      "a@b.com",
		Direction:      "outbound",
		EventType:      "email_sent",
	})
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if id == "" {
		t.Error("expected a generated message id")
	}
}

func TestGetOrCreateReturnsExistingContact(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM contact").
		WithArgs("org_1", "lead@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("contact_1"))

	id, err := service.GetOrCreate(context.Background(), "org_1", "lead@x.com")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if id != "contact_1" {
		t.Errorf("expected existing contact id, got %q", id)
	}
}

func TestGetOrCreateInsertsNewContact(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id FROM contact").
		WithArgs("org_1", "new@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO contact").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("contact_new"))

	id, err := service.GetOrCreate(context.Background(), "org_1", "new@x.com")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if id != "contact_new" {
		t.Errorf("expected new contact id, got %q", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrgStatsComputesRates(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs("org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM message").
		WithArgs("org_1").
		WillReturnRows(sqlmock.NewRows([]string{"sent", "opened", "replied", "bounced", "clicked"}).
			AddRow(200, 50, 10, 4, 8))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stats, err := service.OrgStats(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("OrgStats returned error: %v", err)
	}
	if stats.OpenRate != 25.0 {
		t.Errorf("expected open_rate 25, got %v", stats.OpenRate)
	}
	if stats.ReplyRate != 5.0 {
		t.Errorf("expected reply_rate 5, got %v", stats.ReplyRate)
	}
}

func TestOrgStatsZeroSent(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs("org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM message").
		WithArgs("org_1").
		WillReturnRows(sqlmock.NewRows([]string{"sent", "opened", "replied", "bounced", "clicked"}).
			AddRow(0, 0, 0, 0, 0))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stats, err := service.OrgStats(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("OrgStats returned error: %v", err)
	}
	if stats.OpenRate != 0 || stats.ReplyRate != 0 {
		t.Errorf("zero sent must yield zero rates, got %+v", stats)
	}
}

func TestSearchUsesWildcardTerm(t *testing.T) {
	service, mock, cleanup := newTestService(t)
	defer cleanup()

	mock.ExpectExec("SELECT set_config\\('app.current_org_id'").
		WithArgs("org_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("ILIKE").
		WithArgs("org_1", "%hello%", 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "from_email", "to_email", "subject", "event_type",
			"created_at", "contact_email", "campaign_name",
		}))
	mock.ExpectExec("RESET app.current_org_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := service.Search(context.Background(), "org_1", "hello", 50); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
