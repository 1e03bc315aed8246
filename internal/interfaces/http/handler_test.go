package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"project_newsbot/internal/entities"
	"project_newsbot/internal/infrastructure"
	handler "project_newsbot/internal/interfaces/http"
	"project_newsbot/internal/repository"
	"project_newsbot/internal/usecases"
)

const testSecret = "jwt-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResponder struct {
	mu    sync.Mutex
	reply string
	got   []entities.Message
}

func (f *fakeResponder) Respond(_ context.Context, msg entities.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, msg)
	return f.reply
}

func (f *fakeResponder) last(t *testing.T) entities.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.got)
	return f.got[len(f.got)-1]
}

func newRouter(t *testing.T, deps handler.RouterDeps) *gin.Engine {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Middleware == nil {
		deps.Middleware = handler.NewMiddleware(testSecret)
	}
	r := gin.New()
	handler.SetupRoutes(r, deps)
	return r
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTwilioIncoming_RepliesWithTwiML(t *testing.T) {
	responder := &fakeResponder{reply: "📢 *Top News* <b>&</b>"}
	r := newRouter(t, handler.RouterDeps{Service: responder})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/twilio/incoming", url.Values{"Body": {"5 hi"}, "From": {"+15550001"}, "MessageSid": {"SM1"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")

	var doc struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, responder.reply, doc.Message)
	assert.Contains(t, w.Body.String(), "&lt;b&gt;&amp;")

	msg := responder.last(t)
	assert.Equal(t, "5 hi", msg.Content)
	assert.Equal(t, "+15550001", msg.From)
	assert.Equal(t, "SM1", msg.ID)
	assert.Equal(t, entities.ChannelTwilio, msg.Platform)
}

func TestTwilioIncoming_EmptyBodyStillAnswers(t *testing.T) {
	svc := usecases.NewMessageService(nil, usecases.NewComposer(5, 200), zap.NewNop())
	r := newRouter(t, handler.RouterDeps{Service: svc})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/twilio/incoming", url.Values{"From": {"+1"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Message>"+usecases.ApologyMessage+"</Message>")
}

func TestTwilioIncoming_Signature(t *testing.T) {
	verifier := handler.NewTwilioVerifier("twilio-token", "")
	responder := &fakeResponder{reply: "ok"}
	r := newRouter(t, handler.RouterDeps{Service: responder, Twilio: verifier})
	form := url.Values{"Body": {"menu"}, "From": {"+1"}}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("http://example.com/twilio/incoming", form))
	assert.Equal(t, http.StatusForbidden, w.Code, "missing signature")

	req := postForm("http://example.com/twilio/incoming", form)
	req.Header.Set("X-Twilio-Signature", "bogus")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code, "wrong signature")

	req = postForm("http://example.com/twilio/incoming", form)
	req.Header.Set("X-Twilio-Signature", verifier.Sign("http://example.com/twilio/incoming", form))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, responder.got, 1)
}

func TestNewTwilioVerifier_DisabledWithoutToken(t *testing.T) {
	assert.Nil(t, handler.NewTwilioVerifier("", "https://bot.example.com/twilio/incoming"))
}

func TestTwilioVerifier_ConfiguredURLWins(t *testing.T) {
	const public = "https://bot.example.com/twilio/incoming"
	verifier := handler.NewTwilioVerifier("twilio-token", public)
	form := url.Values{"Body": {"1"}}

	req := postForm("http://10.0.0.5:5000/twilio/incoming", form)
	require.NoError(t, req.ParseForm())
	req.Header.Set("X-Twilio-Signature", verifier.Sign(public, form))
	assert.True(t, verifier.Verify(req))
}

func TestWebWebhook(t *testing.T) {
	responder := &fakeResponder{reply: "hello back"}
	r := newRouter(t, handler.RouterDeps{Service: responder})

	body := bytes.NewBufferString(`{"from":"alice","content":"menu"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/web", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello back", resp["reply"])

	msg := responder.last(t)
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, entities.ChannelWeb, msg.Platform)
	assert.NotEmpty(t, msg.ID, "request id is carried as message id")
	assert.Equal(t, msg.ID, w.Header().Get("X-Request-ID"))
}

func TestWebWebhook_MalformedJSON(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}})

	req := httptest.NewRequest(http.MethodPost, "/webhook/web", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndIndex(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Version: "1.2.3"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/twilio/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"newsbot","version":"1.2.3"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := infrastructure.NewMetrics(prometheus.NewRegistry())
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Metrics: metrics})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/twilio/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `newsbot_http_requests_total{method="GET",route="/twilio/health",status="200"} 1`)
}

// admin API

type fakeUsage struct {
	history []repository.DailyUsage
	err     error
	days    int
}

func (f *fakeUsage) GetTodayUsage(_ context.Context, channel string) (int, int, error) {
	if channel == entities.ChannelTwilio {
		return 2, 3, f.err
	}
	return 0, 0, f.err
}

func (f *fakeUsage) GetUsageHistory(_ context.Context, days int) ([]repository.DailyUsage, error) {
	f.days = days
	return f.history, f.err
}

type fakeWhatsApp struct {
	qr        string
	loggedIn  bool
	logoutErr error
	loggedOut bool
}

func (f *fakeWhatsApp) GetQR() string                 { return f.qr }
func (f *fakeWhatsApp) IsLoggedIn() bool              { return f.loggedIn }
func (f *fakeWhatsApp) IsConnected() bool             { return f.loggedIn }
func (f *fakeWhatsApp) GetUserInfo() (string, string) { return "15550001", "NewsBot" }
func (f *fakeWhatsApp) Logout(context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}

func newAuth(t *testing.T) *usecases.AuthUsecase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return usecases.NewAuthUsecase("admin", string(hash), testSecret, time.Hour)
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"s3cret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})
	login(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_Disabled(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_RequiresAdminToken(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/registry", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/registry", "garbage").Code)

	viewer := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "viewer",
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	viewerToken, err := viewer.SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/admin/registry", viewerToken).Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/admin/registry", expiredToken).Code)
}

func TestAdmin_Registry(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})
	token := login(t, r)

	w := get(r, "/api/admin/registry", token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Categories []struct {
			ID  int    `json:"id"`
			Key string `json:"key"`
		} `json:"categories"`
		Languages       []map[string]string `json:"languages"`
		DefaultLanguage string              `json:"default_language"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Categories, len(entities.AllCategories()))
	assert.Equal(t, 1, resp.Categories[0].ID)
	assert.Len(t, resp.Languages, len(entities.AllLanguages()))
	assert.Equal(t, "en", resp.DefaultLanguage)
}

func TestAdmin_Usage(t *testing.T) {
	usage := &fakeUsage{history: []repository.DailyUsage{
		{Channel: "twilio", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), MessagesSent: 3, MessagesReceived: 4},
		{Channel: "telegram", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), MessagesSent: 1, MessagesReceived: 1},
	}}
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t), Usage: usage})
	token := login(t, r)

	w := get(r, "/api/admin/usage?days=30", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, usage.days)

	var resp struct {
		Today   map[string]repository.ChannelSum `json:"today"`
		Summary repository.UsageSummary          `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, repository.ChannelSum{Sent: 4, Received: 5}, resp.Summary.Total)
	assert.Equal(t, repository.ChannelSum{Sent: 2, Received: 3}, resp.Today["twilio"])
	assert.Len(t, resp.Today, 4)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/admin/usage?days=0", token).Code)

	usage.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(r, "/api/admin/usage", token).Code)
}

func TestAdmin_UsageDisabled(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})
	token := login(t, r)

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/admin/usage", token).Code)
}

func TestAdmin_Limiter(t *testing.T) {
	limiter := infrastructure.NewMessageRateLimiter(1, 5)
	defer limiter.Stop()
	limiter.Allow("twilio:+1")

	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t), Limiter: limiter})
	token := login(t, r)

	w := get(r, "/api/admin/limiter", token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["enabled"])
	assert.EqualValues(t, 1, resp["active_senders"])
}

func TestAdmin_LimiterReset(t *testing.T) {
	limiter := infrastructure.NewMessageRateLimiter(0.001, 1)
	defer limiter.Stop()
	key := infrastructure.SenderKey("twilio", "+1")
	require.True(t, limiter.Allow(key))
	require.False(t, limiter.Allow(key))

	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t), Limiter: limiter})
	token := login(t, r)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/limiter/reset", strings.NewReader(`{"channel":"twilio","sender":"+1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, limiter.Allow(key))

	req = httptest.NewRequest(http.MethodPost, "/api/admin/limiter/reset", strings.NewReader(`{"channel":"twilio"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_WhatsApp(t *testing.T) {
	wa := &fakeWhatsApp{qr: "2@pairing-code"}
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t), WhatsApp: wa})
	token := login(t, r)

	w := get(r, "/api/admin/whatsapp/qr", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = get(r, "/api/admin/whatsapp/status", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasQR":true`)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/whatsapp/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, wa.loggedOut)

	wa.qr, wa.loggedIn = "", true
	w = get(r, "/api/admin/whatsapp/qr", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Already logged in", w.Body.String())
}

func TestAdmin_WhatsAppDisabled(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})
	token := login(t, r)

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/admin/whatsapp/qr", token).Code)
	w := get(r, "/api/admin/whatsapp/status", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)
}

func TestAdmin_RateLimitPerUser(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}, Auth: newAuth(t)})
	token := login(t, r)

	var limited bool
	for i := 0; i < 20; i++ {
		if get(r, "/api/admin/registry", token).Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(t, handler.RouterDeps{Service: &fakeResponder{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/webhook/web", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
