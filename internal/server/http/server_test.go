package httpserver

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
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/todo-keeper/internal/clock"
	pkgcrypto "github.com/and161185/todo-keeper/internal/crypto"
	"github.com/and161185/todo-keeper/internal/limiter"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository/memory"
	"github.com/and161185/todo-keeper/internal/service"
	"github.com/and161185/todo-keeper/internal/token"
)

const password = "correct horse battery"

type harness struct {
	app   *fiber.App
	store *memory.Store
	admin *service.AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	clk := clock.NewManual(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	hasher := &pkgcrypto.Argon2{Time: 1, Memory: 1024, Threads: 1}
	tokens := token.NewService(token.Config{
		Secret:     []byte("http-secret"),
		Issuer:     "todo-keeper",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, clk)
	lim := limiter.NewMemory(clk, limiter.Policy{Window: 15 * time.Minute, MaxFails: 3, BlockFor: 15 * time.Minute})
	log := zaptest.NewLogger(t)

	admins := service.NewAdminService(store, hasher, clk)
	app := New(Services{
		Auth:     service.NewAuthService(store, tokens, hasher, lim, clk, log),
		Guard:    service.NewGuard(tokens, store),
		Todos:    service.NewTodoService(store, clk),
		Deletion: service.NewDeletionService(store, clk, 30*24*time.Hour),
		Admin:    admins,
	}, log)
	return &harness{app: app, store: store, admin: admins}
}

func (h *harness) do(t *testing.T, method, path string, body any, access string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if access != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func (h *harness) login(t *testing.T, kind, email string) tokenResponse {
	t.Helper()
	code, body := h.do(t, http.MethodPost, "/auth/"+kind+"/login", credentialsRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, code, string(body))
	return decode[tokenResponse](t, body)
}

func (h *harness) register(t *testing.T, email string) tokenResponse {
	t.Helper()
	code, body := h.do(t, http.MethodPost, "/auth/user/register", credentialsRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusCreated, code, string(body))
	return h.login(t, "user", email)
}

func (h *harness) adminLogin(t *testing.T, email string) tokenResponse {
	t.Helper()
	_, err := h.admin.CreateAdmin(context.Background(), email, password)
	require.NoError(t, err)
	return h.login(t, "admin", email)
}

func (h *harness) createTodo(t *testing.T, access, title string) todoResponse {
	t.Helper()
	code, body := h.do(t, http.MethodPost, "/todos", map[string]any{"title": title}, access)
	require.Equal(t, http.StatusCreated, code, string(body))
	return decode[todoResponse](t, body)
}

func TestAuth_LoginAndRefreshShape(t *testing.T) {
	h := newHarness(t)
	tok := h.register(t, "Shape@Example.com")
	require.NotEmpty(t, tok.ID)
	require.NotEmpty(t, tok.Token.Access)
	require.NotEmpty(t, tok.Token.Refresh)
	require.True(t, tok.Token.RefreshableUntil.After(tok.Token.ExpiredAt))

	code, body := h.do(t, http.MethodPost, "/auth/user/refresh", map[string]string{"refresh_token": tok.Token.Refresh}, "")
	require.Equal(t, http.StatusOK, code, string(body))
	next := decode[tokenResponse](t, body)
	require.Equal(t, tok.ID, next.ID)
	require.NotEqual(t, tok.Token.Refresh, next.Token.Refresh)

	// the rotated token is single use
	code, _ = h.do(t, http.MethodPost, "/auth/user/refresh", map[string]string{"session_token": tok.Token.Refresh}, "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(t, http.MethodPost, "/auth/user/refresh", map[string]string{}, "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAuth_RefreshAfterLogout(t *testing.T) {
	h := newHarness(t)
	tok := h.register(t, "bye@example.com")

	code, _ := h.do(t, http.MethodPost, "/auth/user/logout", nil, tok.Token.Access)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = h.do(t, http.MethodPost, "/auth/user/logout", nil, tok.Token.Access)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = h.do(t, http.MethodPost, "/auth/user/refresh", map[string]string{"refresh_token": tok.Token.Refresh}, "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAuth_FailuresLookAlike(t *testing.T) {
	h := newHarness(t)
	h.register(t, "known@example.com")

	code1, body1 := h.do(t, http.MethodPost, "/auth/user/login", credentialsRequest{Email: "known@example.com", Password: "wrong password"}, "")
	code2, body2 := h.do(t, http.MethodPost, "/auth/user/login", credentialsRequest{Email: "ghost@example.com", Password: "wrong password"}, "")
	require.Equal(t, http.StatusUnauthorized, code1)
	require.Equal(t, code1, code2)
	require.Equal(t, string(body1), string(body2))

	// user credentials do not open admin sessions
	code, _ := h.do(t, http.MethodPost, "/auth/admin/login", credentialsRequest{Email: "known@example.com", Password: password}, "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAuth_LoginRateLimited(t *testing.T) {
	h := newHarness(t)
	h.register(t, "slow@example.com")
	bad := credentialsRequest{Email: "slow@example.com", Password: "not the password"}

	var last int
	for range 4 {
		last, _ = h.do(t, http.MethodPost, "/auth/user/login", bad, "")
	}
	require.Equal(t, http.StatusTooManyRequests, last)

	code, _ := h.do(t, http.MethodPost, "/auth/user/login", credentialsRequest{Email: "slow@example.com", Password: password}, "")
	require.Equal(t, http.StatusTooManyRequests, code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodPost, "/auth/user/register", credentialsRequest{Email: "nope", Password: "short"}, "")
	require.Equal(t, http.StatusBadRequest, code)
	resp := decode[map[string]any](t, body)
	require.Equal(t, "validation failed", resp["error"])
	fields, ok := resp["fields"].(map[string]any)
	require.True(t, ok, string(body))
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")

	h.register(t, "dup@example.com")
	code, _ = h.do(t, http.MethodPost, "/auth/user/register", credentialsRequest{Email: "DUP@example.com", Password: password}, "")
	require.Equal(t, http.StatusConflict, code)

	req := httptest.NewRequest(http.MethodPost, "/auth/user/register", bytes.NewReader([]byte("{")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp2, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestTodos_OwnershipAndKinds(t *testing.T) {
	h := newHarness(t)
	alice := h.register(t, "alice@example.com")
	bob := h.register(t, "bob@example.com")
	td := h.createTodo(t, alice.Token.Access, "alice only")

	code, _ := h.do(t, http.MethodGet, "/todos/"+td.ID.String(), nil, bob.Token.Access)
	require.Equal(t, http.StatusForbidden, code)

	code, body := h.do(t, http.MethodGet, "/todos/"+td.ID.String(), nil, alice.Token.Access)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "alice only", decode[todoResponse](t, body).Title)

	code, _ = h.do(t, http.MethodGet, "/todos/"+td.ID.String(), nil, "")
	require.Equal(t, http.StatusUnauthorized, code)

	// a user token cannot reach admin routes
	code, _ = h.do(t, http.MethodGet, "/admin/todos/"+td.ID.String(), nil, alice.Token.Access)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = h.do(t, http.MethodGet, "/todos/not-a-uuid", nil, alice.Token.Access)
	require.Equal(t, http.StatusNotFound, code)
}

func TestTodos_PatchSemantics(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "patch@example.com")
	code, body := h.do(t, http.MethodPost, "/todos", map[string]any{"title": "draft", "description": "first"}, u.Token.Access)
	require.Equal(t, http.StatusCreated, code, string(body))
	td := decode[todoResponse](t, body)

	code, body = h.do(t, http.MethodPatch, "/todos/"+td.ID.String(), map[string]any{"isCompleted": true}, u.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))
	got := decode[todoResponse](t, body)
	require.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, "first", *got.Description)

	code, body = h.do(t, http.MethodPatch, "/todos/"+td.ID.String(), map[string]any{"description": nil}, u.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))
	require.Nil(t, decode[todoResponse](t, body).Description)

	code, _ = h.do(t, http.MethodPatch, "/todos/"+td.ID.String(), map[string]any{"title": nil}, u.Token.Access)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestAdmin_DeleteWritesSnapshotAndAudit(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "owner@example.com")
	adm := h.adminLogin(t, "boss@example.com")
	td := h.createTodo(t, u.Token.Access, "evidence")

	code, _ := h.do(t, http.MethodGet, "/admin/todos/"+td.ID.String()+"?rationale=ticket-42", nil, adm.Token.Access)
	require.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodDelete, "/admin/todos/"+td.ID.String(), nil, adm.Token.Access)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = h.do(t, http.MethodGet, "/todos/"+td.ID.String(), nil, u.Token.Access)
	require.Equal(t, http.StatusNotFound, code)

	code, body := h.do(t, http.MethodGet, "/deletedTodoLogs?todoId="+td.ID.String(), nil, u.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))
	snap := decode[deletedTodoResponse](t, body)
	require.Equal(t, "evidence", snap.Title)
	require.Equal(t, td.ID, snap.OriginalTodoID)
	require.NotNil(t, snap.RetentionExpiresAt)

	code, body = h.do(t, http.MethodGet, "/deletedTodoLogs/"+snap.ID.String(), nil, u.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = h.do(t, http.MethodGet, "/admin/todos/"+td.ID.String()+"/auditLogs", nil, adm.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))
	logs := decode[[]auditLogResponse](t, body)
	require.Len(t, logs, 2)
	actions := []model.AuditAction{logs[0].Action, logs[1].Action}
	require.ElementsMatch(t, []model.AuditAction{model.AuditView, model.AuditDelete}, actions)

	code, body = h.do(t, http.MethodGet, "/auditLogs/"+logs[0].ID.String(), nil, adm.Token.Access)
	require.Equal(t, http.StatusOK, code, string(body))
	code, _ = h.do(t, http.MethodGet, "/auditLogs/"+logs[0].ID.String(), nil, u.Token.Access)
	require.Equal(t, http.StatusForbidden, code)

	// exactly once
	code, _ = h.do(t, http.MethodDelete, "/admin/todos/"+td.ID.String(), nil, adm.Token.Access)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAdmin_ForeignSnapshotIsHidden(t *testing.T) {
	h := newHarness(t)
	a := h.register(t, "snap-a@example.com")
	b := h.register(t, "snap-b@example.com")
	td := h.createTodo(t, a.Token.Access, "gone")

	code, _ := h.do(t, http.MethodDelete, "/todos/"+td.ID.String(), nil, a.Token.Access)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = h.do(t, http.MethodGet, "/deletedTodoLogs?todoId="+td.ID.String(), nil, b.Token.Access)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAdmin_UserStatusAndLastAdmin(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "flagged@example.com")
	adm := h.adminLogin(t, "solo@example.com")

	code, _ := h.do(t, http.MethodPut, "/admin/users/"+u.ID.String()+"/status", statusRequest{Status: model.StatusDisabled}, adm.Token.Access)
	require.Equal(t, http.StatusNoContent, code)

	// disabled accounts lose access immediately
	code, _ = h.do(t, http.MethodPost, "/todos", map[string]any{"title": "x"}, u.Token.Access)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = h.do(t, http.MethodDelete, "/admin/admins/"+adm.ID.String(), nil, adm.Token.Access)
	require.Equal(t, http.StatusConflict, code)
}

func TestAdmin_CreateTodoForUser(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "target@example.com")
	adm := h.adminLogin(t, "helper@example.com")

	code, body := h.do(t, http.MethodPost, "/admin/users/"+u.ID.String()+"/todos", map[string]any{"title": "assigned"}, adm.Token.Access)
	require.Equal(t, http.StatusCreated, code, string(body))
	require.Equal(t, u.ID, decode[todoResponse](t, body).OwnerID)

	code, _ = h.do(t, http.MethodPost, "/admin/users/"+adm.ID.String()+"/todos", map[string]any{"title": "nobody"}, adm.Token.Access)
	require.Equal(t, http.StatusNotFound, code)
}

func TestRecoverPanic(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(zaptest.NewLogger(t))})
	app.Use(recoverPanic(zaptest.NewLogger(t)))
	app.Get("/boom", func(*fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotContains(t, string(b), "kaboom")
}
