package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/bank-ledger-be/internal/config"
	"github.com/hongminglow/bank-ledger-be/internal/storage/memory"
)

const (
	adminIdentifier = "00000000191"
	adminPassword   = "admin-pass-123"
	userPassword    = "user-pass-123"
)

type result struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

type client struct {
	t    *testing.T
	base string
}

type option func(*http.Request)

func withCookie(c *http.Cookie) option {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) option {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (c client) do(method, path string, payload any, opts ...option) result {
	c.t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(c.t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, c.base+path, &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	res := result{status: resp.StatusCode, header: resp.Header, raw: raw.Bytes()}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw.Bytes(), &res.body))
	}
	return res
}

func (r result) object(key string) map[string]any {
	obj, _ := r.body[key].(map[string]any)
	return obj
}

func (r result) list(key string) []any {
	items, _ := r.body[key].([]any)
	return items
}

func (r result) cookie(name string) *http.Cookie {
	for _, c := range (&http.Response{Header: r.header}).Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func dec(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %T", v)
	return decimal.RequireFromString(s)
}

func newTestServer(t *testing.T) client {
	t.Helper()
	cfg := config.Config{
		Port:           "0",
		DatabaseDriver: config.DriverMemory,
		JWTSecret:      "test-secret",
		JWTIssuer:      "test",
		JWTTTL:         time.Hour,
		CORSOrigins:    []string{"*"},
		BcryptCost:     bcrypt.MinCost,
		CookieName:     "authToken",
	}
	srv := New(cfg, memory.NewStore(), nil)
	created, err := srv.EnsureAdmin(context.Background(), config.AdminConfig{
		Identifier: "000.000.001-91",
		Name:       "Root",
		Password:   adminPassword,
	})
	require.NoError(t, err)
	require.True(t, created)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client{t: t, base: ts.URL}
}

func (c client) adminCookie() *http.Cookie {
	c.t.Helper()
	res := c.do(http.MethodPost, "/auth/login", map[string]string{"identifier": adminIdentifier, "password": adminPassword})
	require.Equal(c.t, http.StatusOK, res.status)
	cookie := res.cookie("authToken")
	require.NotNil(c.t, cookie)
	return cookie
}

func (c client) createUser(admin *http.Cookie, identifier string, extra map[string]any) map[string]any {
	c.t.Helper()
	payload := map[string]any{"identifier": identifier, "name": "Ana", "password": userPassword}
	for k, v := range extra {
		payload[k] = v
	}
	res := c.do(http.MethodPost, "/admin/users", payload, withCookie(admin))
	require.Equal(c.t, http.StatusCreated, res.status, string(res.raw))
	return res.object("user")
}

func (c client) userToken(identifier string) string {
	c.t.Helper()
	res := c.do(http.MethodPost, "/auth/login", map[string]string{"cpf": identifier, "password": userPassword})
	require.Equal(c.t, http.StatusOK, res.status)
	token, _ := res.body["token"].(string)
	require.NotEmpty(c.t, token)
	return token
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	res := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["success"])
	assert.Equal(t, "ok", res.body["status"])
	assert.Equal(t, "memory", res.body["storage"])
	assert.NotEmpty(t, res.header.Get("X-Request-ID"))
}

func TestAdminLoginSetsSessionCookie(t *testing.T) {
	c := newTestServer(t)
	res := c.do(http.MethodPost, "/auth/login", map[string]string{"identifier": "000.000.001-91", "password": adminPassword})
	require.Equal(t, http.StatusOK, res.status)

	cookie := res.cookie("authToken")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.NotContains(t, res.body, "token")
	assert.Equal(t, "admin", res.object("user")["role"])
	assert.NotContains(t, res.object("user"), "password_hash")

	me := c.do(http.MethodGet, "/auth/me", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, me.status)
	assert.Equal(t, adminIdentifier, me.object("user")["identifier"])
}

func TestUserLoginReturnsBearerToken(t *testing.T) {
	c := newTestServer(t)
	c.createUser(c.adminCookie(), "111.222.333-44", nil)

	res := c.do(http.MethodPost, "/auth/login", map[string]string{"identifier": "11122233344", "password": userPassword})
	require.Equal(t, http.StatusOK, res.status)
	assert.NotEmpty(t, res.body["token"])
	assert.Nil(t, res.cookie("authToken"))
}

func TestLoginFailures(t *testing.T) {
	c := newTestServer(t)
	tests := []struct {
		name    string
		payload any
		status  int
	}{
		{name: "wrong password", payload: map[string]string{"identifier": adminIdentifier, "password": "nope"}, status: http.StatusUnauthorized},
		{name: "unknown identifier", payload: map[string]string{"identifier": "999", "password": adminPassword}, status: http.StatusUnauthorized},
		{name: "missing password", payload: map[string]string{"identifier": adminIdentifier}, status: http.StatusBadRequest},
		{name: "not json", payload: "plain", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := c.do(http.MethodPost, "/auth/login", tc.payload)
			assert.Equal(t, tc.status, res.status)
			assert.Equal(t, false, res.body["success"])
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	c := newTestServer(t)
	res := c.do(http.MethodPost, "/auth/logout", nil, withCookie(c.adminCookie()))
	require.Equal(t, http.StatusOK, res.status)
	cookie := res.cookie("authToken")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	c := newTestServer(t)
	c.createUser(c.adminCookie(), "111", nil)
	token := c.userToken("111")

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/admin/users", nil).status)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/admin/users", nil, withBearer("garbage")).status)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/admin/users", nil, withBearer(token)).status)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/admin/stats", nil, withBearer(token)).status)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/user/profile", nil).status)
}

func TestAdminUserCRUD(t *testing.T) {
	c := newTestServer(t)
	admin := c.adminCookie()

	user := c.createUser(admin, "111.222.333-44", map[string]any{"account_number": "0001-2"})
	assert.Equal(t, "11122233344", user["identifier"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "0001-2", user["account_number"])

	dup := c.do(http.MethodPost, "/admin/users", map[string]any{"cpf": "11122233344", "name": "Dup", "password": userPassword}, withCookie(admin))
	assert.Equal(t, http.StatusConflict, dup.status)

	short := c.do(http.MethodPost, "/admin/users", map[string]any{"identifier": "555", "name": "Short", "password": "x"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, short.status)

	list := c.do(http.MethodGet, "/admin/users", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, list.status)
	assert.Len(t, list.list("users"), 2)

	updated := c.do(http.MethodPut, "/admin/users/11122233344", map[string]any{"name": "Ana Maria"}, withCookie(admin))
	require.Equal(t, http.StatusOK, updated.status)
	assert.Equal(t, "Ana Maria", updated.object("user")["name"])

	badRole := c.do(http.MethodPut, "/admin/users/11122233344", map[string]any{"role": "root"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, badRole.status)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/users/999", nil, withCookie(admin)).status)
	for _, path := range []string{"/admin/users/abc", "/admin/users/abc/transactions", "/admin/users/abc/transactions/export"} {
		assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, path, nil, withCookie(admin)).status, path)
	}
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/admin/users/abc/reconcile", nil, withCookie(admin)).status)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodDelete, "/admin/users/abc", nil, withCookie(admin)).status)

	subCent := c.do(http.MethodPost, "/admin/users", map[string]any{"identifier": "777", "name": "Cents", "password": userPassword, "initial_balance": "0.001"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, subCent.status)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/users/777", nil, withCookie(admin)).status)

	longPassword := c.do(http.MethodPost, "/admin/users", map[string]any{"identifier": "778", "name": "Long", "password": strings.Repeat("x", 80)}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, longPassword.status)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodDelete, "/admin/users/"+adminIdentifier, nil, withCookie(admin)).status)

	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/admin/users/11122233344", nil, withCookie(admin)).status)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/users/11122233344", nil, withCookie(admin)).status)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/admin/users/11122233344", nil, withCookie(admin)).status)
}

func TestTransactionFlow(t *testing.T) {
	c := newTestServer(t)
	admin := c.adminCookie()
	user := c.createUser(admin, "111", map[string]any{"initial_balance": "100"})
	assert.True(t, decimal.NewFromInt(100).Equal(dec(t, user["balance"])))

	created := c.do(http.MethodPost, "/admin/transactions", map[string]any{
		"user_identifier": "111", "type": "expense", "title": "groceries", "amount": "30", "date": "02/05/2024",
	}, withCookie(admin))
	require.Equal(t, http.StatusCreated, created.status, string(created.raw))
	assert.True(t, decimal.NewFromInt(70).Equal(dec(t, created.body["balance"])))
	txn := created.object("transaction")
	assert.Equal(t, "2024-05-02", txn["date"])
	assert.Equal(t, "💰", txn["icon"])
	expenseID := int64(txn["id"].(float64))

	token := c.userToken("111")
	own := c.do(http.MethodPost, "/user/transactions", map[string]any{"type": "income", "title": "refund", "amount": "5.5"}, withBearer(token))
	require.Equal(t, http.StatusCreated, own.status, string(own.raw))
	assert.True(t, decimal.RequireFromString("75.5").Equal(dec(t, own.body["balance"])))

	listed := c.do(http.MethodGet, "/user/transactions", nil, withBearer(token))
	require.Equal(t, http.StatusOK, listed.status)
	assert.Len(t, listed.list("transactions"), 3)

	bad := c.do(http.MethodPost, "/user/transactions", map[string]any{"type": "gift", "title": "x", "amount": "1"}, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, bad.status)

	missing := c.do(http.MethodDelete, "/admin/transactions/9999?identifier=111", nil, withCookie(admin))
	assert.Equal(t, http.StatusNotFound, missing.status)
	wrongOwner := c.do(http.MethodDelete, "/admin/transactions/1?identifier="+adminIdentifier, nil, withCookie(admin))
	assert.Equal(t, http.StatusNotFound, wrongOwner.status)

	deleted := c.do(http.MethodDelete, "/user/transactions/"+strconv.FormatInt(expenseID, 10), nil, withBearer(token))
	require.Equal(t, http.StatusOK, deleted.status)
	assert.True(t, decimal.RequireFromString("105.5").Equal(dec(t, deleted.body["balance"])))

	again := c.do(http.MethodDelete, "/user/transactions/"+strconv.FormatInt(expenseID, 10), nil, withBearer(token))
	assert.Equal(t, http.StatusNotFound, again.status)

	profile := c.do(http.MethodGet, "/user/profile", nil, withBearer(token))
	require.Equal(t, http.StatusOK, profile.status)
	assert.True(t, decimal.RequireFromString("105.5").Equal(dec(t, profile.object("user")["balance"])))

	stats := c.do(http.MethodGet, "/admin/stats", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, stats.status)
	assert.Equal(t, float64(2), stats.object("stats")["totalUsers"])
	assert.Equal(t, float64(2), stats.object("stats")["totalTransactions"])
	assert.True(t, decimal.RequireFromString("105.5").Equal(dec(t, stats.object("stats")["totalBalance"])))

	reconciled := c.do(http.MethodPost, "/admin/users/111/reconcile", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, reconciled.status)
	assert.True(t, dec(t, reconciled.object("reconcile")["drift"]).IsZero())
}

func TestUserScopedToOwnAccount(t *testing.T) {
	c := newTestServer(t)
	admin := c.adminCookie()
	c.createUser(admin, "111", nil)
	c.createUser(admin, "222", nil)
	token := c.userToken("111")

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/user/profile?identifier=111", nil, withBearer(token)).status)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/user/profile?identifier=222", nil, withBearer(token)).status)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/user/transactions?identifier=222", nil, withBearer(token)).status)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/user/profile?identifier=abc", nil, withBearer(token)).status)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/user/transactions?cpf=x-y", nil, withBearer(token)).status)

	other := c.do(http.MethodGet, "/user/profile?identifier=222", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, other.status)
	assert.Equal(t, "222", other.object("user")["identifier"])
}

func TestExportStatement(t *testing.T) {
	c := newTestServer(t)
	admin := c.adminCookie()
	c.createUser(admin, "111", map[string]any{"initial_balance": "42.5"})

	res := c.do(http.MethodGet, "/admin/users/111/transactions/export", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.header.Get("Content-Disposition"), "statement_111.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(res.raw))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Statement")
	require.NoError(t, err)
	assert.Equal(t, "Opening balance", rows[5][3])

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/admin/users/999/transactions/export", nil, withCookie(admin)).status)
}
