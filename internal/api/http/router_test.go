package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/repository/memory"
	"github.com/spec-kit/gearguard/internal/service"
	"github.com/spec-kit/gearguard/internal/triage"
)

type fixedPredictor struct {
	readings []triage.Reading
}

func (p fixedPredictor) Predict(context.Context) ([]triage.Reading, error) {
	return p.readings, nil
}

type testServer struct {
	app       *fiber.App
	predictor *fixedPredictor
	metrics   *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	authCfg := config.AuthConfig{JWTSecret: "http-test", AccessTokenTTLMinutes: 60, BcryptCost: 4}
	repos := memory.NewStore().Repositories()
	tokens := auth.NewTokenManager(authCfg.JWTSecret, time.Hour)
	predictor := &fixedPredictor{}
	metrics := observability.NewMetrics()
	services := service.New(service.Options{
		Auth:       authCfg,
		Tokens:     tokens,
		Repos:      repos,
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		Predictor:  predictor,
		Metrics:    metrics,
		Logger:     zap.NewNop(),
	})
	app := NewServer(ServerConfig{Name: "gearguard-test", Version: "test", Metrics: metrics}, services, auth.NewAuthMiddleware(tokens, repos.Users))
	return &testServer{app: app, predictor: predictor, metrics: metrics}
}

type response struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]any
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (r response) data(t *testing.T) map[string]any {
	t.Helper()
	d, ok := r.body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", r.raw)
	return d
}

func (r response) requireError(t *testing.T, status int, code, message string) {
	t.Helper()
	require.Equal(t, status, r.status, string(r.raw))
	errBody, ok := r.body["error"].(map[string]any)
	require.True(t, ok, string(r.raw))
	assert.Equal(t, code, errBody["code"])
	if message != "" {
		assert.Equal(t, message, errBody["message"])
		assert.Equal(t, message, r.body["message"])
	}
}

// signup registers an account and returns its token and id.
func (s *testServer) signup(t *testing.T, name, email, role string) (string, string) {
	t.Helper()
	res := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "pw-123456", "role": role,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	data := res.data(t)
	user := data["user"].(map[string]any)
	return data["token"].(string), user["id"].(string)
}

type plant struct {
	admin, employee, tech string
	techID                string
	teamID, equipmentID   string
}

func (s *testServer) seed(t *testing.T) plant {
	t.Helper()
	var p plant
	p.admin, _ = s.signup(t, "Root", "root@example.com", "admin")
	p.employee, _ = s.signup(t, "Emma", "emma@example.com", "employee")
	p.tech, p.techID = s.signup(t, "Tom", "tom@example.com", "technician")

	res := s.do(t, http.MethodPost, "/teams", p.admin, map[string]any{"name": "Mechanics"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	p.teamID = res.data(t)["id"].(string)

	res = s.do(t, http.MethodPost, "/teams/add-member", p.admin, map[string]any{"teamId": p.teamID, "email": "tom@example.com"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	res = s.do(t, http.MethodPost, "/equipment", p.admin, map[string]any{
		"name": "Lathe", "serialNumber": "L-1", "department": "Shop", "assignedTeam": p.teamID,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	p.equipmentID = res.data(t)["id"].(string)
	return p
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "alive", res.body["status"])

	res = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	deps := res.body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	p := s.seed(t)

	res := s.do(t, http.MethodPost, "/requests", p.employee, map[string]any{
		"subject": "Spindle noise", "type": "corrective", "equipment": p.equipmentID,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	created := res.data(t)
	id := created["id"].(string)
	assert.Equal(t, "new", created["status"])
	assert.Equal(t, p.teamID, created["team"])
	assert.Nil(t, created["assignedTo"])

	res = s.do(t, http.MethodPut, "/requests/"+id+"/assign", p.tech, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "in-progress", res.data(t)["status"])
	assert.Equal(t, p.techID, res.data(t)["assignedTo"])

	res = s.do(t, http.MethodPut, "/requests/"+id+"/assign", p.tech, nil)
	res.requireError(t, http.StatusBadRequest, "INVALID_STATE", "Already assigned")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/close", p.tech, map[string]any{"duration": "abc"})
	res.requireError(t, http.StatusBadRequest, "VALIDATION_FAILED", "duration must be a positive number (hours)")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/close", p.employee, map[string]any{"duration": 2})
	res.requireError(t, http.StatusForbidden, "FORBIDDEN", "Not allowed to close requests")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/close", p.tech, map[string]any{"duration": "2.5"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "repaired", res.data(t)["status"])
	assert.Equal(t, 2.5, res.data(t)["duration"])

	res = s.do(t, http.MethodGet, "/requests/"+id+"/history", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	history := res.body["data"].([]any)
	require.Len(t, history, 3)
	assert.Equal(t, "CREATED", history[0].(map[string]any)["changeType"])

	res = s.do(t, http.MethodGet, "/requests/kanban", p.tech, nil)
	require.Equal(t, http.StatusOK, res.status)
	board := res.data(t)
	assert.Len(t, board["repaired"], 1)
	assert.Contains(t, board, "scrap")
}

func TestAdminAssignmentRoutes(t *testing.T) {
	s := newTestServer(t)
	p := s.seed(t)

	res := s.do(t, http.MethodPost, "/requests", p.admin, map[string]any{
		"subject": "Oil change", "type": "preventive", "equipment": p.equipmentID, "scheduledDate": "2025-03-14",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	id := res.data(t)["id"].(string)

	res = s.do(t, http.MethodPut, "/requests/"+id+"/assign-to", p.tech, map[string]any{"technicianId": p.techID})
	res.requireError(t, http.StatusForbidden, "FORBIDDEN", "")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/reassign", p.admin, map[string]any{"technicianId": p.techID})
	res.requireError(t, http.StatusBadRequest, "INVALID_STATE", "Only in-progress requests can be reassigned")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/assign-to", p.admin, map[string]any{})
	res.requireError(t, http.StatusBadRequest, "VALIDATION_FAILED", "technicianId is required")

	res = s.do(t, http.MethodPut, "/requests/"+id+"/assign-to", p.admin, map[string]any{"technicianId": p.techID})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, p.techID, res.data(t)["assignedTo"])

	res = s.do(t, http.MethodGet, "/requests/calendar", p.employee, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.data(t)["2025-03-14"], 1)

	res = s.do(t, http.MethodGet, "/requests?type=preventive&pageSize=1", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	meta := res.body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["total"])
	assert.Equal(t, float64(1), meta["pageSize"])

	res = s.do(t, http.MethodGet, "/requests", p.employee, nil)
	res.requireError(t, http.StatusForbidden, "FORBIDDEN", "")
}

func (s *testServer) openRequest(t *testing.T, token, subject, typ, equipmentID string) string {
	t.Helper()
	res := s.do(t, http.MethodPost, "/requests", token, map[string]any{
		"subject": subject, "type": typ, "equipment": equipmentID,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	return res.data(t)["id"].(string)
}

func TestListRequests_QueryParameters(t *testing.T) {
	s := newTestServer(t)
	p := s.seed(t)

	res := s.do(t, http.MethodPost, "/teams", p.admin, map[string]any{"name": "Electrics"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	electrics := res.data(t)["id"].(string)
	res = s.do(t, http.MethodPost, "/equipment", p.admin, map[string]any{
		"name": "Panel", "serialNumber": "E-1", "department": "Plant", "assignedTeam": electrics,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	panel := res.data(t)["id"].(string)

	spindle := s.openRequest(t, p.employee, "Spindle noise", "corrective", p.equipmentID)
	s.openRequest(t, p.employee, "Oil change", "preventive", p.equipmentID)
	fuse := s.openRequest(t, p.employee, "Fuse blown", "corrective", panel)
	res = s.do(t, http.MethodPut, "/requests/"+spindle+"/assign", p.tech, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"no filters", "", 3},
		{"single status", "status=new", 2},
		{"status csv", "status=new,in-progress", 3},
		{"priority csv", "priority=low,medium", 3},
		{"priority miss", "priority=high", 0},
		{"type", "type=preventive", 1},
		{"type is case-insensitive", "type=CORRECTIVE", 2},
		{"team", "team=" + electrics, 1},
		{"assignee", "assignedTo=" + p.techID, 1},
		{"equipmentId", "equipmentId=" + panel, 1},
		{"equipment alias", "equipment=" + panel, 1},
		{"equipmentId wins over alias", "equipmentId=" + p.equipmentID + "&equipment=" + panel, 2},
		{"subject search ignores case", "q=SPINDLE", 1},
		{"combined", "type=corrective&status=new", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.do(t, http.MethodGet, "/requests?"+tc.query, p.admin, nil)
			require.Equal(t, http.StatusOK, res.status, string(res.raw))
			assert.Len(t, res.body["data"], tc.want)
			assert.Equal(t, float64(tc.want), res.body["meta"].(map[string]any)["total"])
		})
	}

	res = s.do(t, http.MethodGet, "/requests?equipmentId="+panel, p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, fuse, res.body["data"].([]any)[0].(map[string]any)["id"])

	pages := []struct {
		query          string
		page, pageSize float64
		items          int
	}{
		{"page=2&pageSize=2", 2, 2, 1},
		{"pageSize=-5", 1, 1, 1},
		{"page=0&pageSize=1000", 1, 200, 3},
		{"page=abc", 1, 50, 3},
	}
	for _, pc := range pages {
		res := s.do(t, http.MethodGet, "/requests?"+pc.query, p.admin, nil)
		require.Equal(t, http.StatusOK, res.status, string(res.raw))
		meta := res.body["meta"].(map[string]any)
		assert.Equal(t, pc.page, meta["page"], pc.query)
		assert.Equal(t, pc.pageSize, meta["pageSize"], pc.query)
		assert.Equal(t, float64(3), meta["total"], pc.query)
		assert.Len(t, res.body["data"], pc.items, pc.query)
	}

	res = s.do(t, http.MethodGet, "/admin/requests/export?equipmentId="+panel, p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	book, err := excelize.OpenReader(bytes.NewReader(res.raw))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(book.GetSheetList()[0])
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus the one matching request")
	assert.Equal(t, fuse, rows[1][0])
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodGet, "/requests/kanban", "", nil)
	res.requireError(t, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")

	res = s.do(t, http.MethodGet, "/requests/kanban", "not-a-token", nil)
	res.requireError(t, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")

	s.signup(t, "Ann", "ann@example.com", "")
	res = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "ann@example.com", "password": "nope"})
	res.requireError(t, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")

	res = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "ann@example.com"})
	res.requireError(t, http.StatusBadRequest, "VALIDATION_FAILED", "invalid payload")
	fields := res.body["error"].(map[string]any)["details"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "required", fields["password"])

	res = s.do(t, http.MethodGet, "/no-such-route", "", nil)
	res.requireError(t, http.StatusNotFound, "NOT_FOUND", "")
}

func TestUsersAndTeamsRoutes(t *testing.T) {
	s := newTestServer(t)
	p := s.seed(t)

	res := s.do(t, http.MethodPost, "/users", p.admin, map[string]any{
		"name": "Tess", "email": "tess@example.com", "role": "technician", "teamId": p.teamID,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	temp := res.data(t)["tempPassword"].(string)
	tessID := res.data(t)["user"].(map[string]any)["id"].(string)

	res = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "tess@example.com", "password": temp})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	res = s.do(t, http.MethodGet, "/teams/"+p.teamID, p.employee, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.data(t)["members"], 2)

	res = s.do(t, http.MethodPut, "/users/"+tessID+"/team", p.admin, map[string]any{"teamId": nil})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Nil(t, res.data(t)["teamId"])

	res = s.do(t, http.MethodGet, "/teams", p.employee, nil)
	require.Equal(t, http.StatusOK, res.status)
	teams := res.body["data"].([]any)
	require.Len(t, teams, 1)
	assert.Equal(t, float64(1), teams[0].(map[string]any)["memberCount"])

	res = s.do(t, http.MethodGet, "/users?role=technician", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(2), res.body["meta"].(map[string]any)["total"])

	res = s.do(t, http.MethodGet, "/users", p.tech, nil)
	res.requireError(t, http.StatusForbidden, "FORBIDDEN", "")

	res = s.do(t, http.MethodPost, "/equipment", p.admin, map[string]any{"name": "Drill"})
	res.requireError(t, http.StatusBadRequest, "VALIDATION_FAILED", "missing required fields")
}

func TestTelemetryScanAndDashboard(t *testing.T) {
	s := newTestServer(t)
	p := s.seed(t)

	res := s.do(t, http.MethodPost, "/sensors", p.employee, map[string]any{
		"equipment": p.equipmentID, "temperature": 72.5, "vibration": 3.1, "powerUsage": 9, "runtimeHours": 4,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))

	res = s.do(t, http.MethodGet, "/sensors/"+p.equipmentID, p.employee, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["data"], 1)

	s.predictor.readings = []triage.Reading{{EquipmentID: p.equipmentID, Temperature: 90, Vibration: 8, Power: 14, Runtime: 10}}
	res = s.do(t, http.MethodGet, "/ai/scan", p.tech, nil)
	res.requireError(t, http.StatusForbidden, "FORBIDDEN", "")

	res = s.do(t, http.MethodGet, "/ai/scan", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, float64(1), res.data(t)["ticketsCreated"])

	res = s.do(t, http.MethodGet, "/admin/dashboard", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	dash := res.data(t)
	assert.Equal(t, float64(1), dash["criticalEquipmentCount"])
	assert.Len(t, dash["latestPredictions"], 1)
	assert.Len(t, dash["latestRequests"], 1)

	res = s.do(t, http.MethodGet, "/admin/requests/export", p.admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, xlsxContentTypeForTest, res.header.Get(fiber.HeaderContentType))
	assert.Contains(t, res.header.Get(fiber.HeaderContentDisposition), ".xlsx")
	assert.True(t, bytes.HasPrefix(res.raw, []byte("PK")), "xlsx is a zip archive")

	assert.NotZero(t, s.metrics.Snapshot()["errors"])
}

const xlsxContentTypeForTest = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
