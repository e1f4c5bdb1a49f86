package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"tradedesk/internal/models"
	"tradedesk/internal/pipeline"
	"tradedesk/internal/server"
	"tradedesk/internal/store"
	"tradedesk/internal/testutil"
	"tradedesk/internal/websocket"
)

func setupApp(t *testing.T) (*server.App, http.Handler) {
	t.Helper()
	hub := websocket.NewHub()
	s := testutil.SetupStore(t, store.WithNotifier(hub))
	app := server.New(testutil.Config(t), s, hub)
	return app, app.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) pipeline.Result {
	t.Helper()
	var res pipeline.Result
	testutil.DecodeEnvelope(t, w, &res)
	return res
}

func TestRequireEmployee(t *testing.T) {
	_, h := setupApp(t)

	tests := []struct {
		name  string
		empID string
		want  int
	}{
		{"missing header", "", 401},
		{"unknown employee", "999", 401},
		{"admin", testutil.AdminID, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, testutil.EmployeeRequest("GET", "/api/v1/employees/"+testutil.AdminID, nil, tt.empID))
			testutil.AssertStatus(t, w, tt.want)
		})
	}
}

func TestDisabledEmployeeRefused(t *testing.T) {
	app, h := setupApp(t)
	e := testutil.CreateTestEmployee(t, app.Store, "gone", models.RoleDisabled)

	w := serve(h, testutil.EmployeeRequest("GET", "/api/v1/quotes/Q1", nil, e.ID))
	testutil.AssertStatus(t, w, 403)
}

func TestReadOnlyCannotConvert(t *testing.T) {
	app, h := setupApp(t)
	ro := testutil.CreateTestEmployee(t, app.Store, "viewer", models.RoleReadOnly)
	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)

	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/convert", map[string]interface{}{"ids": []string{q.ID}}, ro.ID))
	testutil.AssertStatus(t, w, 403)

	w = serve(h, testutil.EmployeeRequest("GET", "/api/v1/quotes/"+q.ID, nil, ro.ID))
	testutil.AssertStatus(t, w, 200)
}

func TestConvertEndpoint(t *testing.T) {
	app, h := setupApp(t)
	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)
	body := map[string]interface{}{"ids": []string{q.ID}}

	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/convert", body, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	res := decodeResult(t, w)
	if !res.OK || res.Converted != 1 || len(res.Created) != 1 {
		t.Fatalf("first convert: %+v", res)
	}

	w = serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/convert", body, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	res = decodeResult(t, w)
	if res.OK || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "already transferred") {
		t.Errorf("second convert: %+v", res)
	}

	w = serve(h, testutil.EmployeeRequest("GET", "/api/v1/quotes/"+q.ID+"/audit", nil, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	var entries []models.AuditEntry
	testutil.DecodeEnvelope(t, w, &entries)
	found := false
	for _, e := range entries {
		if e.Action == "convert" {
			found = true
		}
	}
	if !found {
		t.Errorf("no convert audit entry in %+v", entries)
	}
}

func TestDeleteReferencedRecord(t *testing.T) {
	app, h := setupApp(t)
	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)
	serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/convert", map[string]interface{}{"ids": []string{q.ID}}, testutil.AdminID))

	w := serve(h, testutil.EmployeeRequest("DELETE", "/api/v1/quotes/"+q.ID, nil, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	res := decodeResult(t, w)
	if res.OK || !strings.Contains(res.Message, "referenced by downstream record") {
		t.Errorf("delete: %+v", res)
	}
}

func TestUpdateRecord(t *testing.T) {
	app, h := setupApp(t)
	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)

	w := serve(h, testutil.EmployeeRequest("PATCH", "/api/v1/quotes/"+q.ID, map[string]interface{}{"remark": "urgent"}, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	var got models.Quote
	testutil.DecodeEnvelope(t, w, &got)
	if got.Remark != "urgent" {
		t.Errorf("remark = %q", got.Remark)
	}

	w = serve(h, testutil.EmployeeRequest("PATCH", "/api/v1/quotes/"+q.ID, map[string]interface{}{"is_transferred": true}, testutil.AdminID))
	testutil.AssertStatus(t, w, 400)
}

func TestLogin(t *testing.T) {
	_, h := setupApp(t)

	w := serve(h, testutil.EmployeeRequest("POST", "/auth/login", map[string]string{"account": "admin", "password": testutil.TestPassword}, ""))
	testutil.AssertStatus(t, w, 200)
	var e models.Employee
	testutil.DecodeEnvelope(t, w, &e)
	if e.ID != testutil.AdminID {
		t.Errorf("logged in as %q", e.ID)
	}

	w = serve(h, testutil.EmployeeRequest("POST", "/auth/login", map[string]string{"account": "admin", "password": "wrong"}, ""))
	testutil.AssertStatus(t, w, 401)

	w = serve(h, testutil.EmployeeRequest("GET", "/auth/login", nil, ""))
	testutil.AssertStatus(t, w, 405)
}

func TestLoginRateLimited(t *testing.T) {
	_, h := setupApp(t)
	body := map[string]string{"account": "nobody", "password": "x"}

	for i := 0; i < 5; i++ {
		w := serve(h, testutil.EmployeeRequest("POST", "/auth/login", body, ""))
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d rate limited", i+1)
		}
	}
	w := serve(h, testutil.EmployeeRequest("POST", "/auth/login", body, ""))
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
}

func TestRates(t *testing.T) {
	_, h := setupApp(t)

	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/rates", map[string]interface{}{
		"currency_code": "krw", "exchange_rate": 200,
	}, testutil.AdminID))
	testutil.AssertStatus(t, w, 201)

	w = serve(h, testutil.EmployeeRequest("GET", "/api/v1/rates/krw", nil, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	var got struct {
		Code    string             `json:"currency_code"`
		Rate    float64            `json:"rate"`
		History []models.DailyRate `json:"history"`
	}
	testutil.DecodeEnvelope(t, w, &got)
	if got.Code != "KRW" || got.Rate != 200 || len(got.History) != 1 {
		t.Errorf("rate = %+v", got)
	}

	w = serve(h, testutil.EmployeeRequest("POST", "/api/v1/rates", map[string]interface{}{
		"currency_code": "KRW", "exchange_rate": -1,
	}, testutil.AdminID))
	testutil.AssertStatus(t, w, 400)
}

func TestUnknownRoute(t *testing.T) {
	_, h := setupApp(t)
	w := serve(h, testutil.EmployeeRequest("GET", "/api/v1/quotes/Q1/something/else", nil, testutil.AdminID))
	testutil.AssertStatus(t, w, 404)
}

func TestConversionBroadcast(t *testing.T) {
	app, h := setupApp(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.Hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if app.Hub.ClientCount() != 1 {
		t.Fatalf("clients = %d, want 1", app.Hub.ClientCount())
	}

	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)
	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/convert", map[string]interface{}{"ids": []string{q.ID}}, testutil.AdminID))
	res := decodeResult(t, w)
	if !res.OK {
		t.Fatalf("convert: %+v", res)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("no offer event: %v", err)
		}
		var evt websocket.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatal(err)
		}
		if evt.Module == store.Offers && evt.Action == "create" && evt.ID == res.Created[0] {
			return
		}
	}
}

func TestSetPassword(t *testing.T) {
	app, h := setupApp(t)
	op := testutil.CreateTestEmployee(t, app.Store, "trader", models.RoleOperator)
	body := map[string]string{"password": "N3w-Passw0rd!"}

	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/employees/"+op.ID+"/password", body, op.ID))
	testutil.AssertStatus(t, w, 403)

	w = serve(h, testutil.EmployeeRequest("POST", "/api/v1/employees/"+op.ID+"/password", body, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)

	w = serve(h, testutil.EmployeeRequest("POST", "/auth/login", map[string]string{"account": "trader", "password": "N3w-Passw0rd!"}, ""))
	testutil.AssertStatus(t, w, 200)
}

func TestCopyQuotes(t *testing.T) {
	app, h := setupApp(t)
	c := testutil.CreateTestClient(t, app.Store, "Acme", 10)
	q := testutil.CreateTestQuote(t, app.Store, c.ID, "LM358", 10, 1)

	w := serve(h, testutil.EmployeeRequest("POST", "/api/v1/quotes/copy", map[string]interface{}{"ids": []string{q.ID}}, testutil.AdminID))
	testutil.AssertStatus(t, w, 200)
	var got struct {
		Created []string `json:"created"`
	}
	testutil.DecodeEnvelope(t, w, &got)
	if len(got.Created) != 1 || got.Created[0] == q.ID {
		t.Errorf("created = %v", got.Created)
	}
}
