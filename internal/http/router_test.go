package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	httpH "github.com/yungbote/campuspulse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campuspulse-backend/internal/http/middleware"
	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

type cannedGenerator struct{}

func (cannedGenerator) Provider() string { return "canned" }

func (cannedGenerator) GenerateJSON(ctx context.Context, prompt string, schema llm.Schema) (string, error) {
	if schema.Name == "campus_report" {
		return `{"trend":"Stable","stressor":"Exams","intervention":"Quiet study rooms"}`, nil
	}
	return `{"sentiment":"Happy","keywords":["friends"],"insight":"Time with friends lifts you."}`, nil
}

type testServer struct {
	engine *gin.Engine
	store  kv.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	hash, err := bcrypt.GenerateFromPassword([]byte("uni-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	authSvc, err := services.NewAuthService(log, []services.Credential{
		{ID: "uni123", SecretHash: string(hash), Role: auth.RoleUniversity},
	}, "router-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	store := kv.NewMemoryStore()
	set := repos.NewSet(store, kv.NewLocalLocker(), log)
	gen := cannedGenerator{}
	agg := services.NewAggregationService(log, set.Shared, set.Reports, set.Locker, pulse.DefaultScale(), nil)
	syncSvc := services.NewSyncService(log, set.Shared, set.Locker, agg)
	classifier := services.NewClassificationService(log, gen, time.Second)
	campus := services.NewCampusReportService(log, agg, gen, time.Second)
	student := services.NewStudentService(log, set.History, classifier, syncSvc, authSvc, services.NewSessionRegistry(0), pulse.DefaultScale(), "salt")

	engine := NewRouter(RouterConfig{
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authSvc),
		AuthHandler:    httpH.NewAuthHandler(authSvc, student),
		StudentHandler: httpH.NewStudentHandler(log, student),
		CampusHandler:  httpH.NewCampusHandler(agg, campus),
		HealthHandler:  httpH.NewHealthHandler(store),
	})
	return &testServer{engine: engine, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (s *testServer) mustOK(t *testing.T, method, path, token string, body any) map[string]any {
	t.Helper()
	rec, out := s.do(t, method, path, token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s %s: status=%d body=%s", method, path, rec.Code, rec.Body.String())
	}
	return out
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("healthcheck: missing X-Request-Id")
	}
}

func TestStudentCheckInFlow(t *testing.T) {
	s := newTestServer(t)

	keyResp := s.mustOK(t, http.MethodPost, "/api/student/keys", "", nil)
	key, _ := keyResp["recovery_key"].(string)
	if key == "" {
		t.Fatalf("keys: no recovery key in %v", keyResp)
	}
	login := s.mustOK(t, http.MethodPost, "/api/student/login", "", map[string]string{"recovery_key": key})
	tok, _ := login["token"].(string)

	state := s.mustOK(t, http.MethodGet, "/api/student/intake", tok, nil)
	if state["step"] != "intro" {
		t.Fatalf("intake: unexpected step %v", state["step"])
	}

	rec, _ := s.do(t, http.MethodPut, "/api/student/intake/rating", tok, map[string]float64{"value": 4})
	if rec.Code != http.StatusConflict {
		t.Fatalf("rating at intro: status=%d want 409", rec.Code)
	}

	state = s.mustOK(t, http.MethodPost, "/api/student/intake/next", tok, nil)
	q, _ := state["question"].(map[string]any)
	if q["key"] != "mood" || q["label"] != "Overall Mood" {
		t.Fatalf("next: unexpected question %v", q)
	}
	s.mustOK(t, http.MethodPut, "/api/student/intake/rating", tok, map[string]float64{"value": 5})
	rec, _ = s.do(t, http.MethodPut, "/api/student/intake/rating", tok, map[string]float64{"value": 9})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("rating out of range: status=%d want 400", rec.Code)
	}
	for i := 0; i < pulse.NumDimensions; i++ {
		s.mustOK(t, http.MethodPost, "/api/student/intake/next", tok, nil)
	}
	s.mustOK(t, http.MethodPut, "/api/student/intake/text", tok, map[string]string{"text": "good week"})

	submitted := s.mustOK(t, http.MethodPost, "/api/student/intake/submit", tok, nil)
	entry, _ := submitted["entry"].(map[string]any)
	if entry["sentiment"] != "Happy" || entry["mood"] != float64(5) || entry["text"] != "good week" {
		t.Fatalf("submit: unexpected entry %v", entry)
	}
	intakeState, _ := submitted["intake"].(map[string]any)
	if intakeState["step"] != "intro" {
		t.Fatalf("submit: wizard not reset: %v", intakeState)
	}

	sugg := s.mustOK(t, http.MethodGet, "/api/student/suggestions", tok, nil)
	if sugg["sentiment"] != "Happy" {
		t.Fatalf("suggestions: unexpected %v", sugg)
	}

	synced := s.mustOK(t, http.MethodPost, "/api/student/sync", tok, nil)
	result, _ := synced["result"].(map[string]any)
	if result["added"] != float64(1) || result["report"] == nil {
		t.Fatalf("sync: unexpected %v", synced)
	}
	synced = s.mustOK(t, http.MethodPost, "/api/student/sync", tok, nil)
	result, _ = synced["result"].(map[string]any)
	if synced["ok"] != true || result["added"] != float64(0) {
		t.Fatalf("sync (again): unexpected %v", synced)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/campus/stats", tok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("campus stats as student: status=%d want 403", rec.Code)
	}
}

func TestCampusEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"id": "uni123", "secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login wrong secret: status=%d want 401", rec.Code)
	}
	login := s.mustOK(t, http.MethodPost, "/api/login", "", map[string]string{"id": "uni123", "secret": "uni-pass"})
	if login["role"] != "university" {
		t.Fatalf("login: unexpected role %v", login["role"])
	}
	tok, _ := login["token"].(string)

	stats := s.mustOK(t, http.MethodGet, "/api/campus/stats", tok, nil)
	if stats["count"] != float64(0) || stats["top_stressor"] != "None" {
		t.Fatalf("stats (empty): unexpected %v", stats)
	}
	analysis := s.mustOK(t, http.MethodPost, "/api/campus/analysis", tok, nil)
	if analysis["status"] != "insufficient_data" {
		t.Fatalf("analysis (empty): unexpected %v", analysis)
	}

	seed := `[{"mood":3,"stress":4,"sentiment":"Sad"},{"mood":4,"sentiment":"Sad"},{"mood":5},{"mood":2,"sentiment":"Happy"}]`
	if err := s.store.Put(context.Background(), repos.SharedEntriesKey, []byte(seed)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stats = s.mustOK(t, http.MethodGet, "/api/campus/stats", tok, nil)
	if stats["avg_mood_label"] != "3.5" || stats["count"] != float64(4) || stats["top_stressor"] != "Sad" {
		t.Fatalf("stats: unexpected %v", stats)
	}
	analysis = s.mustOK(t, http.MethodPost, "/api/campus/analysis", tok, nil)
	if analysis["status"] != "ok" {
		t.Fatalf("analysis: unexpected %v", analysis)
	}
	reports := s.mustOK(t, http.MethodGet, "/api/campus/reports", tok, nil)
	if reports["count"] != float64(0) {
		t.Fatalf("reports: unexpected %v", reports)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/campus/stats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stats without token: status=%d want 401", rec.Code)
	}
}

func TestStoreFailureSurfacesAs500(t *testing.T) {
	s := newTestServer(t)
	login := s.mustOK(t, http.MethodPost, "/api/login", "", map[string]string{"id": "uni123", "secret": "uni-pass"})
	tok, _ := login["token"].(string)
	if err := s.store.Put(context.Background(), repos.SharedEntriesKey, []byte(`{}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, body := s.do(t, http.MethodGet, "/api/campus/stats", tok, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("stats: status=%d want 500", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["code"] != "store_unavailable" {
		t.Fatalf("stats: unexpected error body %v", body)
	}
}

// checkIn walks one student through a full intake and submits it.
func (s *testServer) checkIn(t *testing.T, tok string) {
	t.Helper()
	for i := 0; i <= pulse.NumDimensions; i++ {
		s.mustOK(t, http.MethodPost, "/api/student/intake/next", tok, nil)
	}
	s.mustOK(t, http.MethodPut, "/api/student/intake/text", tok, map[string]string{"text": "long week"})
	s.mustOK(t, http.MethodPost, "/api/student/intake/submit", tok, nil)
}

func TestSyncReportFailureReturnsPartialResult(t *testing.T) {
	s := newTestServer(t)
	login := s.mustOK(t, http.MethodPost, "/api/student/login", "", map[string]string{"recovery_key": "River-Zen-Echo-0a0b0c"})
	tok, _ := login["token"].(string)
	s.checkIn(t, tok)

	if err := s.store.Put(context.Background(), repos.WeeklyReportsKey, []byte(`{}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, body := s.do(t, http.MethodPost, "/api/student/sync", tok, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("sync: status=%d want 500", rec.Code)
	}
	errBody, _ := body["error"].(map[string]any)
	result, _ := body["result"].(map[string]any)
	if errBody["code"] != "report_failed" || result["added"] != float64(1) {
		t.Fatalf("sync: unexpected body %v", body)
	}

	synced := s.mustOK(t, http.MethodPost, "/api/student/sync", tok, nil)
	result, _ = synced["result"].(map[string]any)
	if result["added"] != float64(0) {
		t.Fatalf("sync (again): merged entry was not kept: %v", synced)
	}
}
