package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/mailer"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage/sqlite"
	"github.com/sommlab/ai.exchange/internal/services/exchange/token"
)

type apiFixture struct {
	handler http.Handler
	mail    *mailer.Recorder
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "exchange.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := token.NewManager("test-secret", 0, 0)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	recorder := &mailer.Recorder{}
	svc := app.New(store, tokens, recorder, app.Config{AllowedDomains: []string{"uni.edu"}})
	handler := NewHandler(svc, store.Ping, Options{}).Routes()
	return apiFixture{handler: handler, mail: recorder}
}

func (f apiFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.doFrom(t, "192.0.2.1:4000", method, path, bearer, body)
}

func (f apiFixture) doFrom(t *testing.T, remoteAddr, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

var apiCodePattern = regexp.MustCompile(`\b\d{6}\b`)

// signUpAPI drives the register and verify endpoints, returning an
// access token.
func signUpAPI(t *testing.T, f apiFixture, email string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "sufficiently-long",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	emails := f.mail.Emails()
	code := apiCodePattern.FindString(emails[len(emails)-1].Body)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/verify-email", "", map[string]string{
		"email": email,
		"code":  code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", rec.Code, rec.Body.String())
	}
	session := decodeBody[map[string]any](t, rec)
	accessToken, _ := session["access_token"].(string)
	if accessToken == "" {
		t.Fatalf("no access token in %v", session)
	}
	return accessToken
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	accessToken := signUpAPI(t, f, "alice@uni.edu")

	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
	me := decodeBody[map[string]any](t, rec)
	if me["email"] != "alice@uni.edu" || me["role"] != "ADMIN" {
		t.Fatalf("me = %v", me)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated me status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@uni.edu",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] != "invalid email or password" {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestResourceEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	accessToken := signUpAPI(t, f, "alice@uni.edu")

	rec := f.do(t, http.MethodPost, "/api/v1/resources", accessToken, map[string]any{
		"type":         "USE_CASE",
		"title":        "Grading assistant workflow",
		"content_text": "Detailed grading workflow",
		"user_tags":    []string{"assessment"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[map[string]any](t, rec)
	resourceID, _ := created["id"].(string)
	if resourceID == "" {
		t.Fatalf("no id in %v", created)
	}
	if created["status"] != "OPEN" {
		t.Fatalf("status = %v", created["status"])
	}

	rec = f.do(t, http.MethodGet, "/api/v1/resources/"+resourceID, accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/resources?search=grading", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	listed := decodeBody[[]map[string]any](t, rec)
	if len(listed) != 1 {
		t.Fatalf("listed %d resources, want 1", len(listed))
	}

	rec = f.do(t, http.MethodPost, "/api/v1/resources/"+resourceID+"/view", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view status = %d", rec.Code)
	}
	viewed := decodeBody[map[string]any](t, rec)
	if viewed["resource_id"] != resourceID || viewed["view_count"] != float64(1) || viewed["status"] != "tracked" {
		t.Fatalf("view payload = %v", viewed)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/resources/"+resourceID+"/save", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}
	savedResp := decodeBody[map[string]any](t, rec)
	if savedResp["resource_id"] != resourceID || savedResp["is_saved"] != true || savedResp["status"] != "saved" {
		t.Fatalf("save payload = %v", savedResp)
	}
	if savedResp["save_count"] != float64(1) {
		t.Fatalf("save_count = %v", savedResp["save_count"])
	}

	rec = f.do(t, http.MethodGet, "/api/v1/resources/"+resourceID+"/saved", accessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("saved status = %d", rec.Code)
	}
	savedCheck := decodeBody[map[string]any](t, rec)
	if savedCheck["resource_id"] != resourceID || savedCheck["is_saved"] != true {
		t.Fatalf("saved payload = %v", savedCheck)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/resources/"+resourceID, accessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("delete body = %q, want empty", rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/v1/resources/"+resourceID, accessToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d", rec.Code)
	}
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	f := newAPIFixture(t)
	signUpAPI(t, f, "admin@uni.edu")
	staffToken := signUpAPI(t, f, "staff@uni.edu")

	rec := f.do(t, http.MethodGet, "/api/v1/admin/users", staffToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff admin access status = %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["detail"] != "admin access required" {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestLoginRateLimited(t *testing.T) {
	f := newAPIFixture(t)

	var last int
	for i := 0; i < 6; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    fmt.Sprintf("guess%d@uni.edu", i),
			"password": "irrelevant",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth login status = %d, want 429", last)
	}
}

func TestLoginRateLimitConfigurable(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := signUpAPI(t, f, "admin@uni.edu")

	rec := f.do(t, http.MethodPost, "/api/v1/admin/config/update", adminToken, map[string]string{
		"rate_limit_login": "2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("config update status = %d: %s", rec.Code, rec.Body.String())
	}

	// A client the admin calls never touched sees the tightened limit.
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := f.doFrom(t, "198.51.100.7:5000", http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "admin@uni.edu",
			"password": "wrong",
		})
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Fatalf("first two logins = %v, want 401s", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third login status = %d, want 429", codes[2])
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/resources", nil)
	req.Header.Set("Origin", "https://exchange.uni.edu")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://exchange.uni.edu" {
		t.Fatalf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestIDHeader(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("no request id header")
	}
}
