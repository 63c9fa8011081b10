package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"travelhub/internal/auth"
	"travelhub/internal/cache"
	"travelhub/internal/config"
	"travelhub/internal/handler"
	"travelhub/internal/model"
	"travelhub/internal/repository"
	"travelhub/internal/service"
	"travelhub/internal/settings"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*model.User
	order []uuid.UUID
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*model.User{}}
}

func (r *memUsers) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUsers) FindByCPF(_ context.Context, cpf string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.CPF != nil && *u.CPF == cpf })
}

func (r *memUsers) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Active = active
	return nil
}

type noResets struct{}

func (noResets) Create(context.Context, *model.PasswordResetToken) error { return nil }
func (noResets) FindByToken(context.Context, string) (*model.PasswordResetToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noResets) Consume(context.Context, uint, uuid.UUID, string, time.Time) error { return nil }

type memModules struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]model.Module
}

func newMemModules() *memModules {
	return &memModules{rows: map[uint]model.Module{}}
}

func (r *memModules) Create(_ context.Context, m *model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	r.rows[m.ID] = *m
	return nil
}

func (r *memModules) FindByID(_ context.Context, id uint) (*model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *memModules) FindByName(_ context.Context, name string) (*model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.Name == name {
			cp := m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memModules) List(context.Context) ([]model.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Module, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memModules) Update(_ context.Context, m *model.Module, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[m.ID] = *m
	return nil
}

func (r *memModules) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

type memPayments struct {
	mu   sync.Mutex
	rows []model.Payment
}

func (r *memPayments) Create(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	r.rows = append(r.rows, *p)
	return nil
}

func (r *memPayments) FindByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPayments) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPayments) List(context.Context, repository.PaymentFilter) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Payment(nil), r.rows...), nil
}

func (r *memPayments) UpdateStatus(_ context.Context, p *model.Payment, to model.PaymentStatus, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == p.ID {
			r.rows[i].Status = to
		}
	}
	p.Status = to
	return nil
}

func (r *memPayments) Logs(context.Context, uuid.UUID) ([]model.PaymentLog, error) {
	return nil, nil
}

type testServer struct {
	e      *echo.Echo
	users  *memUsers
	tokens *auth.JWTService
	hasher *auth.PasswordHasher
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	if cfg == nil {
		cfg = &config.Config{LoginRate: 1000, LoginBurst: 1000}
	}
	cfg.CookieName = "travelhub_session"

	tokens, err := auth.NewJWTService("router-test-secret-with-enough-bytes", "travelhub")
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	users := newMemUsers()
	revoker := auth.NewTokenStore(rdb)
	log := zap.NewNop()

	gate := auth.NewGate(tokens, revoker, users, auth.GateConfig{
		CookieName:   cfg.CookieName,
		StoreTimeout: time.Second,
		StoreRetries: 1,
	}, log)
	authSvc := service.NewAuthService(users, noResets{}, hasher, tokens, revoker, nil, service.AuthConfig{}, log)
	moduleSvc := service.NewModuleService(newMemModules(), rdb, service.ModuleConfigOptions{StoreTimeout: time.Second, StoreRetries: 1}, log)
	paymentSvc := service.NewPaymentService(&memPayments{}, log)
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))

	e := echo.New()
	Register(e, cfg, log, gate,
		handler.NewAuthHandler(authSvc, handler.CookieConfig{Name: cfg.CookieName}, log),
		handler.NewModuleHandler(moduleSvc),
		handler.NewSettingsHandler(store),
		handler.NewPaymentHandler(paymentSvc),
	)
	return &testServer{e: e, users: users, tokens: tokens, hasher: hasher}
}

func (s *testServer) seedUser(t *testing.T, email, password string, role model.Role) *model.User {
	t.Helper()
	hashed, err := s.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{ID: uuid.New(), Name: "Seed", Email: email, PasswordHash: hashed, Role: role, Active: true}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testServer) token(t *testing.T, u *model.User) string {
	t.Helper()
	token, _, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAPI_RegisterAndLoginScenario(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1","phone":"111","cpf":"222"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered handler.AuthResponse
	decode(t, rec, &registered)
	assert.NotEmpty(t, registered.Token)
	assert.NotContains(t, rec.Body.String(), "secret1")

	stored, err := s.users.FindByEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	rec = s.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = s.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login handler.AuthResponse
	decode(t, rec, &login)
	claims, err := s.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleClient, claims.Role)
}

func TestAPI_RegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email is required")

	s.seedUser(t, "ana@x.com", "secret1", model.RoleClient)
	rec = s.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_EMAIL")

	body := `{"name":"Bia","email":"bia@x.com","password":"` + strings.Repeat("é", 40) + `"}`
	rec = s.do(http.MethodPost, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PASSWORD_TOO_LONG")
}

func TestAPI_AdminLogin(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedUser(t, "client@x.com", "secret1", model.RoleClient)
	s.seedUser(t, "admin@x.com", "secret1", model.RoleAdmin)

	rec := s.do(http.MethodPost, "/api/auth/admin/login", `{"email":"client@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/admin/login", `{"email":"admin@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "travelhub_session=")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Lax")
	assert.Contains(t, cookie, "Max-Age=86400")
}

func TestAPI_VerifyAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	user := s.seedUser(t, "ana@x.com", "secret1", model.RoleClient)
	token := s.token(t, user)

	rec := s.do(http.MethodGet, "/api/auth/verify", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/auth/verify", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ana@x.com")

	rec = s.do(http.MethodPost, "/api/auth/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	rec = s.do(http.MethodGet, "/api/auth/verify", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logged out token must be rejected")

	rec = s.do(http.MethodPost, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "logout without a token still succeeds")
}

func TestAPI_VerifyRejectsDeactivatedUser(t *testing.T) {
	s := newTestServer(t, nil)
	user := s.seedUser(t, "ana@x.com", "secret1", model.RoleClient)
	token := s.token(t, user)
	require.NoError(t, s.users.SetActive(context.Background(), user.ID, false))

	rec := s.do(http.MethodGet, "/api/auth/verify", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_INACTIVE")
}

func TestAPI_ModulesLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.token(t, s.seedUser(t, "admin@x.com", "secret1", model.RoleAdmin))
	clientToken := s.token(t, s.seedUser(t, "client@x.com", "secret1", model.RoleClient))

	body := `{"name":"hotels","label":"Hotels","icon":"bed","order":1,"config":{"colors":{"primary":"#0ea5e9"},"layout":"grid","filters":["price"]}}`

	rec := s.do(http.MethodPost, "/api/modules", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodPost, "/api/modules", body, clientToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/modules", body, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Module
	decode(t, rec, &created)

	rec = s.do(http.MethodPost, "/api/modules", `{"name":"flights","label":"Flights","icon":"plane","order":1,"active":false}`, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/modules", `{"name":"cars","label":"Cars"}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "icon is required")

	rec = s.do(http.MethodPost, "/api/modules", `{"name":"cars","label":"Cars","icon":"car","config":{"colors":{"primary":"blue"}}}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_MODULE_CONFIG")

	rec = s.do(http.MethodGet, "/api/modules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var public handler.ModulesResponse
	decode(t, rec, &public)
	require.Len(t, public.Modules, 1)
	assert.Equal(t, "hotels", public.Modules[0].Name)

	rec = s.do(http.MethodGet, "/api/admin/modules", "", adminToken)
	var all handler.ModulesResponse
	decode(t, rec, &all)
	require.Len(t, all.Modules, 2)
	assert.Equal(t, []string{"hotels", "flights"}, []string{all.Modules[0].Name, all.Modules[1].Name})

	path := "/api/modules/" + jsonNumber(created.ID)
	rec = s.do(http.MethodPut, path, `{"label":"Stays"}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Module
	decode(t, rec, &updated)
	assert.Equal(t, "Stays", updated.Label)
	assert.Equal(t, "bed", updated.Icon)
	assert.Equal(t, model.LayoutGrid, updated.Config.Layout)

	rec = s.do(http.MethodPut, "/api/modules/999", `{"label":"x"}`, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, path, "", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodDelete, path, "", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestAPI_SettingsRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.token(t, s.seedUser(t, "admin@x.com", "secret1", model.RoleAdmin))
	clientToken := s.token(t, s.seedUser(t, "client@x.com", "secret1", model.RoleClient))

	rec := s.do(http.MethodGet, "/api/admin/settings", "", clientToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/api/admin/settings", `{"api_keys":{"maps":"k1"},"mail":{"host":"smtp.test","from":"a@x.com"}}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/admin/settings", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var st settings.Settings
	decode(t, rec, &st)
	assert.Equal(t, "k1", st.APIKeys["maps"])
	assert.Equal(t, "smtp.test", st.Mail.Host)
}

func TestAPI_Payments(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.token(t, s.seedUser(t, "admin@x.com", "secret1", model.RoleAdmin))
	clientToken := s.token(t, s.seedUser(t, "client@x.com", "secret1", model.RoleClient))

	rec := s.do(http.MethodPost, "/api/payments",
		`{"booking_ref":"BK-1","amount":"120.50","currency":"BRL","method":"card","card_number":"4111111111111111","card_expiry":"12/99","card_cvv":"123"}`,
		clientToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "4111111111111111")
	var payment model.Payment
	decode(t, rec, &payment)
	assert.Equal(t, "****1111", payment.CardMasked)

	rec = s.do(http.MethodPost, "/api/payments", `{"booking_ref":"BK-2","amount":"10","currency":"BRL","method":"card"}`, clientToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "card_number is required")

	rec = s.do(http.MethodGet, "/api/payments", "", clientToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BK-1")

	statusPath := "/api/admin/payments/" + payment.ID.String() + "/status"
	rec = s.do(http.MethodPatch, statusPath, `{"status":"paid"}`, clientToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, statusPath, `{"status":"paid"}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"paid"`)

	rec = s.do(http.MethodPatch, statusPath, `{"status":"failed"}`, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_STATUS_TRANSITION")

	rec = s.do(http.MethodPatch, "/api/admin/payments/"+uuid.NewString()+"/status", `{"status":"paid"}`, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_LoginRateLimited(t *testing.T) {
	s := newTestServer(t, &config.Config{LoginRate: 0.001, LoginBurst: 1})
	body := `{"email":"ghost@x.com","password":"secret1"}`

	rec := s.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestAPI_UnknownRouteIsJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}
