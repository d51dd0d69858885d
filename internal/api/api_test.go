package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret, Options{}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, db: database}
}

// userToken creates a user with the given role and returns a signed token.
func (e *testEnv) userToken(t *testing.T, name, role string) (*model.User, string) {
	t.Helper()
	user, err := auth.Register(context.Background(), e.db, name+"@campus.edu", name, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	if role == model.RoleAdmin {
		if _, err := e.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, user.ID); err != nil {
			t.Fatalf("promote %s: %v", name, err)
		}
		user.Role = role
	}
	token, err := auth.GenerateToken(testJWTSecret, user, 0)
	if err != nil {
		t.Fatalf("token for %s: %v", name, err)
	}
	return user, token
}

// do sends a JSON request and decodes the response body into out when set.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func itemBody(title, itemType string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "Left on a bench",
		"category":    "Electronics",
		"type":        itemType,
		"location":    "Library",
		"date":        "2026-09-01",
	}
}

func claimBody(itemID int64) map[string]any {
	return map[string]any{
		"item_id":           itemID,
		"message":           "That's my laptop",
		"proof_description": "Serial number ends in 42",
	}
}

func (e *testEnv) createItem(t *testing.T, token, title, itemType string) *model.Item {
	t.Helper()
	var resp struct {
		Item *model.Item `json:"item"`
	}
	if code := e.do(t, "POST", "/api/items", token, itemBody(title, itemType), &resp); code != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d", code)
	}
	return resp.Item
}

func (e *testEnv) fileClaim(t *testing.T, token string, itemID int64) *model.Claim {
	t.Helper()
	var resp struct {
		Claim *model.Claim `json:"claim"`
	}
	if code := e.do(t, "POST", "/api/claims", token, claimBody(itemID), &resp); code != http.StatusCreated {
		t.Fatalf("file claim: expected 201, got %d", code)
	}
	return resp.Claim
}

func TestRegisterAndLogin(t *testing.T) {
	e := setupTestServer(t)

	reg := map[string]string{"email": "Ana@Campus.edu", "name": "Ana", "password": "password123"}
	var created struct {
		User *model.User `json:"user"`
	}
	if code := e.do(t, "POST", "/api/auth/register", "", reg, &created); code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	if created.User == nil || created.User.Email != "ana@campus.edu" || created.User.Role != model.RoleUser {
		t.Fatalf("unexpected user: %+v", created.User)
	}

	if code := e.do(t, "POST", "/api/auth/register", "", reg, nil); code != http.StatusBadRequest {
		t.Errorf("duplicate register: expected 400, got %d", code)
	}
	short := map[string]string{"email": "bo@campus.edu", "name": "Bo", "password": "short"}
	if code := e.do(t, "POST", "/api/auth/register", "", short, nil); code != http.StatusBadRequest {
		t.Errorf("short password: expected 400, got %d", code)
	}

	bad := map[string]string{"email": "ana@campus.edu", "password": "wrong-password"}
	if code := e.do(t, "POST", "/api/auth/login", "", bad, nil); code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", code)
	}

	var login loginResponse
	good := map[string]string{"email": "ana@campus.edu", "password": "password123"}
	if code := e.do(t, "POST", "/api/auth/login", "", good, &login); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	if login.Token == "" {
		t.Fatal("empty token from login")
	}

	var me struct {
		User *model.User `json:"user"`
	}
	if code := e.do(t, "GET", "/api/auth/me", login.Token, nil, &me); code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", code)
	}
	if me.User == nil || me.User.Name != "Ana" {
		t.Errorf("unexpected me: %+v", me.User)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	e := setupTestServer(t)
	_, token := e.userToken(t, "ana", model.RoleUser)

	if code := e.do(t, "POST", "/api/auth/logout", token, nil, nil); code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}
	if code := e.do(t, "GET", "/api/auth/me", token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", code)
	}
	if code := e.do(t, "GET", "/api/items", token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("revoked token on public listing: expected 401, got %d", code)
	}
}

func TestChangePassword(t *testing.T) {
	e := setupTestServer(t)
	_, token := e.userToken(t, "ana", model.RoleUser)

	wrong := map[string]string{"current_password": "nope", "new_password": "another-pass"}
	if code := e.do(t, "PUT", "/api/auth/password", token, wrong, nil); code != http.StatusBadRequest {
		t.Errorf("wrong current password: expected 400, got %d", code)
	}
	ok := map[string]string{"current_password": "password123", "new_password": "another-pass"}
	if code := e.do(t, "PUT", "/api/auth/password", token, ok, nil); code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", code)
	}
	login := map[string]string{"email": "ana@campus.edu", "password": "another-pass"}
	if code := e.do(t, "POST", "/api/auth/login", "", login, nil); code != http.StatusOK {
		t.Errorf("login with new password: expected 200, got %d", code)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	e := setupTestServer(t)

	if code := e.do(t, "GET", "/api/items", "", nil, nil); code != http.StatusOK {
		t.Errorf("public listing: expected 200, got %d", code)
	}
	if code := e.do(t, "GET", "/api/items?mine=true", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("mine without auth: expected 401, got %d", code)
	}
	if code := e.do(t, "POST", "/api/items", "", itemBody("Laptop", "found"), nil); code != http.StatusUnauthorized {
		t.Errorf("create without auth: expected 401, got %d", code)
	}
	if code := e.do(t, "POST", "/api/claims", "", claimBody(1), nil); code != http.StatusUnauthorized {
		t.Errorf("claim without auth: expected 401, got %d", code)
	}
	if code := e.do(t, "GET", "/api/items", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", code)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	e := setupTestServer(t)
	_, reporter := e.userToken(t, "ana", model.RoleUser)
	_, other := e.userToken(t, "bo", model.RoleUser)

	item := e.createItem(t, reporter, "Laptop", model.ItemTypeFound)
	if item.Status != model.ItemStatusOpen || item.ContactInfo != "ana@campus.edu" {
		t.Fatalf("unexpected item: %+v", item)
	}
	e.createItem(t, other, "Laptop", model.ItemTypeLost)

	var list struct {
		Items      []model.Item     `json:"items"`
		Pagination model.Pagination `json:"pagination"`
	}
	if code := e.do(t, "GET", "/api/items?type=found", "", nil, &list); code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	if len(list.Items) != 1 || list.Pagination.Total != 1 {
		t.Errorf("expected 1 found item, got %d (total %d)", len(list.Items), list.Pagination.Total)
	}
	if code := e.do(t, "GET", "/api/items?category=Nope", "", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad category: expected 400, got %d", code)
	}

	path := "/api/items/" + strconv.FormatInt(item.ID, 10)

	var matches struct {
		Items []model.Item `json:"items"`
	}
	if code := e.do(t, "GET", path+"/matches", "", nil, &matches); code != http.StatusOK {
		t.Fatalf("matches: expected 200, got %d", code)
	}
	if len(matches.Items) != 1 || matches.Items[0].Type != model.ItemTypeLost {
		t.Errorf("expected the lost laptop as match, got %+v", matches.Items)
	}

	if code := e.do(t, "PATCH", path, other, map[string]string{"title": "Mine now"}, nil); code != http.StatusForbidden {
		t.Errorf("foreign update: expected 403, got %d", code)
	}
	if code := e.do(t, "PATCH", path, reporter, map[string]string{"type": "lost"}, nil); code != http.StatusBadRequest {
		t.Errorf("type change: expected 400, got %d", code)
	}
	var updated struct {
		Item *model.Item `json:"item"`
	}
	if code := e.do(t, "PATCH", path, reporter, map[string]string{"title": "Silver laptop"}, &updated); code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", code)
	}
	if updated.Item.Title != "Silver laptop" {
		t.Errorf("expected new title, got %q", updated.Item.Title)
	}

	if code := e.do(t, "GET", path+"/history", other, nil, nil); code != http.StatusForbidden {
		t.Errorf("foreign history: expected 403, got %d", code)
	}
	var history struct {
		History []model.StatusChange `json:"history"`
	}
	if code := e.do(t, "GET", path+"/history", reporter, nil, &history); code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", code)
	}
	if len(history.History) != 1 || history.History[0].ToStatus != model.ItemStatusOpen {
		t.Errorf("unexpected history: %+v", history.History)
	}

	if code := e.do(t, "DELETE", path, reporter, nil, nil); code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}
	if code := e.do(t, "GET", path, "", nil, nil); code != http.StatusNotFound {
		t.Errorf("deleted item: expected 404, got %d", code)
	}
	if code := e.do(t, "GET", "/api/items/abc", "", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", code)
	}
}

func TestClaimWorkflow(t *testing.T) {
	e := setupTestServer(t)
	_, reporter := e.userToken(t, "ana", model.RoleUser)
	_, claimant := e.userToken(t, "bo", model.RoleUser)
	_, rival := e.userToken(t, "cy", model.RoleUser)
	_, admin := e.userToken(t, "admin", model.RoleAdmin)

	item := e.createItem(t, reporter, "Laptop", model.ItemTypeFound)

	tests := []struct {
		name  string
		token string
		body  any
		want  int
	}{
		{"own item", reporter, claimBody(item.ID), http.StatusBadRequest},
		{"missing item", claimant, claimBody(9999), http.StatusNotFound},
		{"missing fields", claimant, map[string]any{"item_id": item.ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := e.do(t, "POST", "/api/claims", tt.token, tt.body, nil); code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}

	claim := e.fileClaim(t, claimant, item.ID)
	if claim.Status != model.ClaimStatusPending {
		t.Fatalf("expected pending claim, got %q", claim.Status)
	}

	if code := e.do(t, "POST", "/api/claims", claimant, claimBody(item.ID), nil); code != http.StatusBadRequest {
		t.Errorf("duplicate claim: expected 400, got %d", code)
	}
	if code := e.do(t, "POST", "/api/claims", rival, claimBody(item.ID), nil); code != http.StatusBadRequest {
		t.Errorf("claim on claimed item: expected 400, got %d", code)
	}

	claimPath := "/api/claims/" + strconv.FormatInt(claim.ID, 10)
	if code := e.do(t, "GET", claimPath, rival, nil, nil); code != http.StatusForbidden {
		t.Errorf("foreign claim read: expected 403, got %d", code)
	}
	if code := e.do(t, "GET", claimPath, claimant, nil, nil); code != http.StatusOK {
		t.Errorf("own claim read: expected 200, got %d", code)
	}

	approve := map[string]string{"status": model.ClaimStatusApproved, "admin_notes": "ID checked"}
	if code := e.do(t, "PATCH", claimPath, claimant, approve, nil); code != http.StatusForbidden {
		t.Errorf("non-admin review: expected 403, got %d", code)
	}
	bogus := map[string]string{"status": "maybe"}
	if code := e.do(t, "PATCH", claimPath, admin, bogus, nil); code != http.StatusBadRequest {
		t.Errorf("invalid decision: expected 400, got %d", code)
	}

	var reviewed struct {
		Claim *model.Claim `json:"claim"`
	}
	if code := e.do(t, "PATCH", claimPath, admin, approve, &reviewed); code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", code)
	}
	if reviewed.Claim.Status != model.ClaimStatusApproved || reviewed.Claim.AdminNotes != "ID checked" {
		t.Errorf("unexpected reviewed claim: %+v", reviewed.Claim)
	}
	if code := e.do(t, "PATCH", claimPath, admin, approve, nil); code != http.StatusBadRequest {
		t.Errorf("second review: expected 400, got %d", code)
	}

	got, err := store.GetItem(context.Background(), e.db, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Status != model.ItemStatusResolved || got.ResolvedAt == nil {
		t.Errorf("expected resolved item, got %q", got.Status)
	}

	var mine struct {
		Claims []model.Claim `json:"claims"`
	}
	if code := e.do(t, "GET", "/api/claims", claimant, nil, &mine); code != http.StatusOK {
		t.Fatalf("list claims: expected 200, got %d", code)
	}
	if len(mine.Claims) != 1 {
		t.Errorf("expected 1 own claim, got %d", len(mine.Claims))
	}
	var none struct {
		Claims []model.Claim `json:"claims"`
	}
	e.do(t, "GET", "/api/claims", rival, nil, &none)
	if none.Claims == nil || len(none.Claims) != 0 {
		t.Errorf("expected empty claim list for rival, got %+v", none.Claims)
	}
}

func TestRejectReopensItem(t *testing.T) {
	e := setupTestServer(t)
	_, reporter := e.userToken(t, "ana", model.RoleUser)
	_, claimant := e.userToken(t, "bo", model.RoleUser)
	_, admin := e.userToken(t, "admin", model.RoleAdmin)

	item := e.createItem(t, reporter, "Umbrella", model.ItemTypeFound)
	claim := e.fileClaim(t, claimant, item.ID)

	reject := map[string]string{"status": model.ClaimStatusRejected}
	if code := e.do(t, "PATCH", "/api/claims/"+strconv.FormatInt(claim.ID, 10), admin, reject, nil); code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", code)
	}

	var resp struct {
		Item *model.Item `json:"item"`
	}
	e.do(t, "GET", "/api/items/"+strconv.FormatInt(item.ID, 10), "", nil, &resp)
	if resp.Item == nil || resp.Item.Status != model.ItemStatusOpen {
		t.Errorf("expected reopened item, got %+v", resp.Item)
	}
}

func TestAdminStats(t *testing.T) {
	e := setupTestServer(t)
	_, user := e.userToken(t, "ana", model.RoleUser)
	_, admin := e.userToken(t, "admin", model.RoleAdmin)
	e.createItem(t, user, "Keys", model.ItemTypeLost)

	if code := e.do(t, "GET", "/api/admin/stats", user, nil, nil); code != http.StatusForbidden {
		t.Errorf("non-admin stats: expected 403, got %d", code)
	}

	var d model.Overview
	if code := e.do(t, "GET", "/api/admin/stats", admin, nil, &d); code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", code)
	}
	if d.Stats == nil || d.Stats.Items.Total != 1 || d.Stats.Items.Lost != 1 {
		t.Errorf("unexpected stats: %+v", d.Stats)
	}
	if len(d.RecentItems) != 1 || d.RecentClaims == nil {
		t.Errorf("unexpected recent activity: %d items, claims %v", len(d.RecentItems), d.RecentClaims)
	}
}

func TestRequestIDHeader(t *testing.T) {
	database := db.NewTestDB(t)
	server := httptest.NewServer(LoggingMiddleware(NewRouter(database, testJWTSecret, Options{})))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/api/items")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}
