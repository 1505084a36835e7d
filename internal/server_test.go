package internal

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-inventory-api/internal/auditstore"
	"warehouse-inventory-api/internal/config"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
	"warehouse-inventory-api/internal/store"
)

type fakePDF struct{ html string }

func (f *fakePDF) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.7 fake"), nil
}

type testEnv struct {
	srv    *Server
	items  *store.Memory
	users  *store.MemoryUsers
	tokens map[string]string
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		JWTSecret:     "test-secret-key-that-is-long-enough-for-hs256",
		JWTIssuer:     "warehouse-inventory-api",
		JWTAudience:   "warehouse-inventory-api",
		JWTExpiry:     time.Hour,
		StoreDriver:   "memory",
		EnableMetrics: true,
		EnableSwagger: true,
	}
}

func newTestEnv(t *testing.T, deps Deps) *testEnv {
	t.Helper()
	env := &testEnv{
		items:  store.NewMemory(),
		users:  store.NewMemoryUsers(),
		tokens: map[string]string{},
	}
	deps.Store = env.items
	deps.Users = env.users
	if deps.Sessions == nil {
		deps.Sessions = auditstore.NewMemory()
	}
	srv, err := NewServer(testConfig(), deps)
	require.NoError(t, err)
	env.srv = srv

	for _, u := range []struct{ name, role string }{
		{"alice", models.RoleAdmin},
		{"sam", models.RoleSales},
		{"pat", models.RolePicker},
	} {
		created, err := CreateUser(context.Background(), env.users, models.CreateUserRequest{
			Username: u.name, Password: "password123", Roles: []string{u.role},
		})
		require.NoError(t, err)
		token, err := srv.JWTManager.GenerateToken(created.ID, created.Username, created.Roles)
		require.NoError(t, err)
		env.tokens[u.name] = token
	}
	return env
}

func (e *testEnv) do(t *testing.T, as, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[as])
	}
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) receive(t *testing.T, make_, model, bin string) models.Item {
	t.Helper()
	w := e.do(t, "alice", "POST", "/items", map[string]any{"make": make_, "model": model, "bin_location": bin})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var it models.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &it))
	return it
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Code
}

func TestNewServerRequiresStores(t *testing.T) {
	_, err := NewServer(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t, Deps{})

	w := env.do(t, "", "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = env.do(t, "", "GET", "/dbping", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "", "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/items/{id}/fulfill")

	w = env.do(t, "", "GET", "/items", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_AUTH_HEADER", errorCode(t, w))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, Deps{})
	w := env.do(t, "", "GET", "/health", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Deps{})

	w := env.do(t, "", "POST", "/auth/login", models.LoginRequest{Username: "sam", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sam", resp.User.Username)
	assert.NotNil(t, resp.User.LastLoginAt)
	claims, err := env.srv.JWTManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleSales}, claims.Roles)

	w = env.do(t, "", "POST", "/auth/login", models.LoginRequest{Username: "sam", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = env.do(t, "", "POST", "/auth/login", models.LoginRequest{Username: "nobody", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "", "POST", "/auth/login", models.LoginRequest{Username: "sam"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapabilityGates(t *testing.T) {
	env := newTestEnv(t, Deps{})
	it := env.receive(t, "Dell", "Latitude 5420", "A-01")

	tests := []struct {
		name   string
		as     string
		method string
		path   string
		body   any
		want   int
	}{
		{"picker cannot request a pick", "pat", "POST", "/items/" + it.ID + "/pick", nil, http.StatusForbidden},
		{"sales cannot fulfill", "sam", "POST", "/items/" + it.ID + "/fulfill", map[string]string{"code": it.ID}, http.StatusForbidden},
		{"sales cannot receive", "sam", "POST", "/items", map[string]string{"make": "x", "model": "y", "bin_location": "z"}, http.StatusForbidden},
		{"sales cannot audit", "sam", "POST", "/audit/start", nil, http.StatusForbidden},
		{"picker cannot export", "pat", "GET", "/exports/items", nil, http.StatusForbidden},
		{"picker cannot return to stock", "pat", "POST", "/items/" + it.ID + "/return", nil, http.StatusForbidden},
		{"sales cannot manage users", "sam", "GET", "/users", nil, http.StatusForbidden},
		{"picker can view", "pat", "GET", "/items/" + it.ID, nil, http.StatusOK},
		{"picker can adjust quantity", "pat", "PUT", "/items/" + it.ID + "/quantity", map[string]int{"quantity": 3}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.as, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "INSUFFICIENT_PERMISSIONS", errorCode(t, w))
			}
		})
	}
}

func TestItemCRUD(t *testing.T) {
	env := newTestEnv(t, Deps{})
	it := env.receive(t, "Dell", "Latitude 5420", "A-01")
	assert.Len(t, it.ID, 12)
	assert.Equal(t, it.ID, it.CodeValue)
	assert.Equal(t, 1, it.Quantity)

	w := env.do(t, "alice", "GET", "/scan/"+it.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "alice", "PATCH", "/items/"+it.ID, map[string]any{"bin_location": "B-07", "notes": "scratched lid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited models.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &edited))
	assert.Equal(t, "B-07", edited.BinLocation)

	w = env.do(t, "alice", "PATCH", "/items/"+it.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "alice", "PUT", "/items/"+it.ID+"/quantity", map[string]int{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = env.do(t, "alice", "POST", "/items", map[string]any{"make": "", "model": "x", "bin_location": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "alice", "GET", "/items?q=latitude", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []models.Item `json:"data"`
		Meta listMeta      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Meta.Total)
	assert.Equal(t, 50, list.Meta.Limit)

	w = env.do(t, "alice", "DELETE", "/items/"+it.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, "alice", "GET", "/items/"+it.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestPickWorkflow(t *testing.T) {
	env := newTestEnv(t, Deps{})
	it := env.receive(t, "HP", "EliteBook 840", "C-03")

	w := env.do(t, "sam", "POST", "/items/"+it.ID+"/pick", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var requested models.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &requested))
	assert.Equal(t, models.RequestPending, requested.RequestStatus)
	assert.Equal(t, "sam", requested.RequestedBy)

	w = env.do(t, "sam", "POST", "/items/"+it.ID+"/pick", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_REQUESTED", errorCode(t, w))

	w = env.do(t, "pat", "GET", "/picks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), it.ID)

	w = env.do(t, "pat", "POST", "/items/"+it.ID+"/fulfill", map[string]string{"code": "not-this-one"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CODE_MISMATCH", errorCode(t, w))

	w = env.do(t, "pat", "POST", "/items/"+it.ID+"/fulfill", map[string]string{"code": it.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sold models.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sold))
	assert.True(t, sold.Sold)
	assert.Equal(t, models.RequestFulfilled, sold.RequestStatus)

	w = env.do(t, "sam", "GET", "/items/sold", nil)
	assert.Contains(t, w.Body.String(), it.ID)

	w = env.do(t, "sam", "POST", "/items/"+it.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "alice", "POST", "/items/"+it.ID+"/return", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, err := env.items.Get(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StateAvailable, inventory.StateOf(got))

	body := env.do(t, "", "GET", "/metrics", nil).Body.String()
	assert.Contains(t, body, `pick_transitions_total{event="request_pick",outcome="ALREADY_REQUESTED"} 1`)
	assert.Contains(t, body, `pick_transitions_total{event="confirm_fulfill",outcome="ok"} 1`)
}

func TestAdminClear(t *testing.T) {
	env := newTestEnv(t, Deps{})
	it := env.receive(t, "Lenovo", "T14", "D-02")

	w := env.do(t, "alice", "POST", "/items/"+it.ID+"/clear", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_REQUESTED", errorCode(t, w))

	env.do(t, "sam", "POST", "/items/"+it.ID+"/pick", nil)
	w = env.do(t, "alice", "POST", "/items/"+it.ID+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "alice", "POST", "/items/missing/pick", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditFlow(t *testing.T) {
	env := newTestEnv(t, Deps{})
	a := env.receive(t, "Dell", "Optiplex", "E-01")
	b := env.receive(t, "Dell", "Optiplex", "E-02")
	env.receive(t, "Dell", "Optiplex", "E-03")

	w := env.do(t, "pat", "POST", "/audit/scan", map[string]string{"code": a.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUDIT_NOT_ACTIVE", errorCode(t, w))

	w = env.do(t, "pat", "POST", "/audit/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, code := range []string{a.ID, b.ID, a.ID} {
		w = env.do(t, "pat", "POST", "/audit/scan", map[string]string{"code": code})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = env.do(t, "pat", "POST", "/audit/scan", map[string]string{"code": "ffffffffffff"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_ID", errorCode(t, w))

	w = env.do(t, "pat", "GET", "/audit/status", nil)
	var st inventory.AuditStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, inventory.AuditStatus{Active: true, Verified: 2, Total: 3, Remaining: 1}, st)

	// sessions belong to one operator
	w = env.do(t, "alice", "GET", "/audit/status", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Active)
	assert.Equal(t, 0, st.Verified)

	w = env.do(t, "pat", "GET", "/audit/report?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "audit_report_")
	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)

	w = env.do(t, "pat", "GET", "/audit/report?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "pat", "POST", "/audit/end", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Active)

	body := env.do(t, "", "GET", "/metrics", nil).Body.String()
	assert.Contains(t, body, `audit_scans_total{result="verified"} 3`)
	assert.Contains(t, body, `audit_scans_total{result="unknown"} 1`)
}

func TestExportItems(t *testing.T) {
	env := newTestEnv(t, Deps{})
	env.receive(t, "Apple", "MacBook Air", "F-01")
	env.receive(t, "Apple", "iPad", "F-02")

	w := env.do(t, "sam", "GET", "/exports/items?q=macbook", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inventory_")
	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	w = env.do(t, "sam", "GET", "/exports/items?format=doc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrintLabels(t *testing.T) {
	t.Run("no renderer", func(t *testing.T) {
		env := newTestEnv(t, Deps{})
		it := env.receive(t, "Dell", "U2720Q", "G-01")
		w := env.do(t, "pat", "POST", "/labels", map[string]any{"ids": []string{it.ID}})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "STORAGE_UNAVAILABLE", errorCode(t, w))
	})

	t.Run("rendered", func(t *testing.T) {
		pdf := &fakePDF{}
		env := newTestEnv(t, Deps{PDF: pdf})
		it := env.receive(t, "Dell", "U2720Q", "G-01")

		w := env.do(t, "pat", "POST", "/labels", map[string]any{"ids": []string{it.ID}, "copies": 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
		assert.Equal(t, 2, strings.Count(pdf.html, it.ID+"</"))
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, Deps{PDF: &fakePDF{}})
		w := env.do(t, "pat", "POST", "/labels", map[string]any{"ids": []string{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = env.do(t, "pat", "POST", "/labels", map[string]any{"ids": []string{"nope"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, Deps{})

	w := env.do(t, "alice", "POST", "/users", models.CreateUserRequest{
		Username: "rita", Password: "password123", Roles: []string{models.RolePicker},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, "alice", "POST", "/users", models.CreateUserRequest{
		Username: "RITA", Password: "password123", Roles: []string{models.RolePicker},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "alice", "POST", "/users", models.CreateUserRequest{
		Username: "bob", Password: "password123", Roles: []string{"superuser"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "alice", "GET", "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rita")

	w = env.do(t, "pat", "GET", "/auth/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "pat", profile.Username)
	assert.Contains(t, profile.Capabilities, models.CapPicksFulfill)
	assert.NotContains(t, profile.Capabilities, models.CapPicksRequest)
}
