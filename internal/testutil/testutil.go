package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"tradedesk/internal/config"
	"tradedesk/internal/database"
	"tradedesk/internal/models"
	"tradedesk/internal/store"
)

// TestPassword satisfies the employee password rules.
const TestPassword = "Passw0rd!"

// Config returns defaults pointed at a fresh temp directory.
func Config(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.AdminPassword = TestPassword
	return cfg
}

// SetupTestDB opens a temp-file SQLite database through database.Open, so
// pragmas and schema match production, and seeds the admin employee.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := Config(t)
	db, err := database.OpenPath(filepath.Join(cfg.DataDir, "test.db"), cfg)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}
	if err := database.SeedAdmin(ctx, db, cfg.AdminPassword); err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	return db
}

// SetupStore returns a store over SetupTestDB with the schema initialized.
func SetupStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	db := SetupTestDB(t)
	s := store.New(db, Config(t), opts...)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return s
}

// AdminID is the seeded administrator.
const AdminID = database.AdminID

func CreateTestEmployee(t *testing.T, s *store.Store, name string, role models.Role) models.Employee {
	t.Helper()
	e, err := s.AddEmployee(context.Background(), AdminID, store.NewEmployee{
		Name: name, Account: name, Password: TestPassword, Role: role,
	})
	if err != nil {
		t.Fatalf("Failed to create employee %s: %v", name, err)
	}
	return e
}

func CreateTestClient(t *testing.T, s *store.Store, name string, margin float64) models.Client {
	t.Helper()
	c, err := s.AddClient(context.Background(), AdminID, store.NewClient{
		Name: name, MarginRate: &margin, EmpID: AdminID,
	})
	if err != nil {
		t.Fatalf("Failed to create client %s: %v", name, err)
	}
	return c
}

func CreateTestVendor(t *testing.T, s *store.Store, name string) models.Vendor {
	t.Helper()
	v, err := s.AddVendor(context.Background(), AdminID, store.NewVendor{Name: name})
	if err != nil {
		t.Fatalf("Failed to create vendor %s: %v", name, err)
	}
	return v
}

func CreateTestQuote(t *testing.T, s *store.Store, cliID, mpn string, qty int, cost float64) models.Quote {
	t.Helper()
	q, err := s.AddQuote(context.Background(), AdminID, store.NewQuote{
		CliID: cliID, InquiryMPN: mpn, InquiryBrand: "TI", InquiryQty: qty, CostPriceRMB: cost,
	})
	if err != nil {
		t.Fatalf("Failed to create quote %s: %v", mpn, err)
	}
	return q
}

func CreateTestRate(t *testing.T, s *store.Store, date, code string, rate float64) models.DailyRate {
	t.Helper()
	r, err := s.AddRate(context.Background(), AdminID, date, code, rate)
	if err != nil {
		t.Fatalf("Failed to add rate %s %s: %v", date, code, err)
	}
	return r
}

// CountRows returns the number of rows in table matching where (may be empty).
func CountRows(t *testing.T, db *sqlx.DB, table, where string, args ...interface{}) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.Get(&n, query, args...); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// EmployeeRequest creates a JSON request acting as empID.
func EmployeeRequest(method, path string, body interface{}, empID string) *http.Request {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if empID != "" {
		req.Header.Set("X-Employee-ID", empID)
	}
	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode envelope data: %v", err)
	}
}
