package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-control-api/internal/config"
	"github.com/iliyamo/finance-control-api/internal/handler"
	"github.com/iliyamo/finance-control-api/internal/middleware"
	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/service"
	"github.com/iliyamo/finance-control-api/internal/testutil"
	"github.com/iliyamo/finance-control-api/internal/utils"
)

var jwtCfg = config.JWT{Secret: "access-secret-for-tests", TTL: 3600, RefreshSecret: "refresh-secret-for-tests", RefreshTTL: 86400}

type app struct {
	e      *echo.Echo
	store  *testutil.Store
	mail   *testutil.MailBox
	tokens *utils.TokenService
}

func newApp(t *testing.T) *app {
	t.Helper()
	tokens, err := utils.NewTokenService(jwtCfg)
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewStore()
	mb := &testutil.MailBox{}

	auth := service.NewAuthService(store.Users(), store.Sessions(), tokens, mb, mb, log)
	e := echo.New()
	Use(e, log)
	RegisterRoutes(e, "1.0.0")
	RegisterAuth(e, handler.NewAuthHandler(auth, log), tokens, middleware.RateLimit(config.RateLimit{}, nil, log))
	RegisterUsers(e, handler.NewResourceHandler(store.Categories(), store.Entries(), store.Favorites(), log), tokens)
	return &app{e: e, store: store, mail: mb, tokens: tokens}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type session struct {
	id      uint64
	token   string
	refresh string
}

func (a *app) signupAndSignin(t *testing.T, email string) session {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
		"name": "Ana Maria", "email": email, "password": "123456", "password_conf": "123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.signin(t, email, "123456")
}

func (a *app) signin(t *testing.T, email, password string) session {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signin", "", echo.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return session{
		id:      uint64(user["id"].(float64)),
		token:   body["token"].(string),
		refresh: body["refresh_token"].(string),
	}
}

func (a *app) createCategory(t *testing.T, s session, label string) uint64 {
	t.Helper()
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/users/%d/categories", s.id), s.token, echo.Map{"label": label, "color": "#a1b2c3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint64(decode(t, rec)["id"].(float64))
}

func TestHelloAndHealth(t *testing.T) {
	a := newApp(t)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := a.do(t, method, "/", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Hello My Financial Control Api v1.0.0", decode(t, rec)["message"])
	}
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSignupFlow(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
		"name": "Ana Maria", "email": "Ana@X.com", "password": "123456", "password_conf": "123456", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Signup successful", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ana@x.com", user["email"])
	assert.NotContains(t, user, "password")

	stored, err := a.store.Users().GetByEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, stored.Role)

	t.Run("duplicate email", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
			"name": "Other", "email": "ana@x.com", "password": "123456", "password_conf": "123456",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"param":"email"`)
	})

	t.Run("bad fields", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
			"name": "Al", "email": "not-an-email", "password": "123456", "password_conf": "654321",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var out struct {
			Errors []struct {
				Param string `json:"param"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		var params []string
		for _, fe := range out.Errors {
			params = append(params, fe.Param)
		}
		assert.Equal(t, []string{"email", "name", "password_conf"}, params)
	})

	t.Run("refuses authenticated callers", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/auth/signup", "whatever-token", echo.Map{
			"name": "Bob Lee", "email": "bob@x.com", "password": "123456", "password_conf": "123456",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	a := newApp(t)
	a.signupAndSignin(t, "ana@x.com")

	rec := a.do(t, http.MethodPost, "/auth/signin", "", echo.Map{"email": "ana@x.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email and/or password.", decode(t, rec)["message"])

	rec = a.do(t, http.MethodPost, "/auth/signin", "", echo.Map{"email": "nobody@x.com", "password": "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndSignout(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")

	claims, err := utils.DecodeToken(s.refresh)
	require.NoError(t, err)
	expired, err := utils.IssueToken(claims.Identity(), jwtCfg.Secret, -time.Minute)
	require.NoError(t, err)

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories", s.id), expired, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, middleware.CodeTokenExpired, decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, "/auth/token/refresh", expired, echo.Map{"refresh_token": s.refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decode(t, rec)["token"].(string)
	assert.NotEqual(t, expired, fresh)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories", s.id), fresh, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/signout", s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, a.store.Sessions().Count(s.id))

	rec = a.do(t, http.MethodPost, "/auth/token/refresh", expired, echo.Map{"refresh_token": s.refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, service.CodeSessionRevoked, decode(t, rec)["code"])
}

func TestRefreshWithoutHeader(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/auth/token/refresh", "", echo.Map{"refresh_token": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, service.CodeNoToken, decode(t, rec)["code"])
}

func TestPasswordRecoverAndReset(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")

	rec := a.do(t, http.MethodPost, "/auth/password/recover", "", echo.Map{"email": "ana@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := a.store.Users().GetByEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.PasswordResetToken)
	token := *u.PasswordResetToken

	rec = a.do(t, http.MethodPost, "/auth/password/reset/x"+token, "", echo.Map{
		"email": "ana@x.com", "password": "abcdef", "password_conf": "abcdef",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/password/reset/"+token, "", echo.Map{
		"email": "ana@x.com", "password": "abcdef", "password_conf": "abcdef",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, a.store.Sessions().Count(s.id))

	a.signin(t, "ana@x.com", "abcdef")

	// A used token is gone.
	rec = a.do(t, http.MethodPost, "/auth/password/reset/"+token, "", echo.Map{
		"email": "ana@x.com", "password": "zzzzzz", "password_conf": "zzzzzz",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateAndOwnership(t *testing.T) {
	a := newApp(t)
	ana := a.signupAndSignin(t, "ana@x.com")
	bob := a.signupAndSignin(t, "bob@x.com")
	bobCat := a.createCategory(t, bob, "Food")

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories", bob.id), ana.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories/%d", ana.id, bobCat), ana.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories/9999", ana.id), ana.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/users/%d/entries", ana.id), ana.token, echo.Map{
		"label": "Lunch", "type": 0, "value": 10, "registeredAt": "2026-10-14", "categories": []uint64{bobCat},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"param":"categories"`)

	admin := &model.User{Name: "Root", Email: "root@x.com", Role: model.RoleAdmin}
	admin.SetPassword("123456")
	require.NoError(t, a.store.Users().Create(context.Background(), admin))
	root := a.signin(t, "root@x.com", "123456")

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/users/%d/categories", bob.id), root.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []model.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats, 1)
	assert.Equal(t, bobCat, cats[0].ID)
}

func TestCategoryLifecycle(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")
	base := fmt.Sprintf("/users/%d", s.id)

	rec := a.do(t, http.MethodPost, base+"/categories", s.token, echo.Map{"label": "Food"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"param":"color"`)

	cat := a.createCategory(t, s, "Food")

	rec = a.do(t, http.MethodPut, fmt.Sprintf("%s/categories/%d", base, cat), s.token, echo.Map{"label": "Groceries"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Groceries", body["label"])
	assert.Equal(t, "#a1b2c3", body["color"])

	rec = a.do(t, http.MethodPost, base+"/entries", s.token, echo.Map{
		"label": "Market", "type": "0", "value": 42.5, "registeredAt": "2026-10-14", "categories": []uint64{cat, cat},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Len(t, entry.Categories, 1)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("%s/categories/%d", base, cat), s.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("%s/entries/%d", base, entry.ID), s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("%s/categories/%d", base, cat), s.token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEntries(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")
	base := fmt.Sprintf("/users/%d/entries", s.id)
	cat := a.createCategory(t, s, "Salary")

	rec := a.do(t, http.MethodPost, base, s.token, echo.Map{
		"label": "Paycheck", "type": true, "value": 1000, "registeredAt": "2026-10-14T09:30:00Z", "categories": []uint64{cat},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.EntryIncome, created.Type)

	rec = a.do(t, http.MethodPost, base, s.token, echo.Map{"label": "Bad", "type": 7, "value": 1, "registeredAt": "2026-10-14"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"param":"type"`)

	rec = a.do(t, http.MethodGet, base+"?start=2026-10-01&end=2026-10-31", s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Categories, 1)

	rec = a.do(t, http.MethodGet, base+"?start=2026-11-01&end=2026-11-30", s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = a.do(t, http.MethodGet, base+"?start=2026-10-31&end=2026-10-01", s.token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Updating without a categories key keeps the links.
	rec = a.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, created.ID), s.token, echo.Map{"value": 1200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1200.0, updated.Value)
	assert.Equal(t, "Paycheck", updated.Label)
	assert.Len(t, updated.Categories, 1)

	rec = a.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, created.ID), s.token, echo.Map{"categories": []uint64{}})
	require.Equal(t, http.StatusOK, rec.Code)
	var unlinked model.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unlinked))
	assert.Empty(t, unlinked.Categories)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("%s/%d", base, 9999), s.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavorites(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")
	base := fmt.Sprintf("/users/%d/favorites", s.id)

	rec := a.do(t, http.MethodPost, base, s.token, echo.Map{"label": "Rent", "type": 0})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"param":"value"`)

	rec = a.do(t, http.MethodPost, base, s.token, echo.Map{"label": "Rent", "type": 0, "value": 800})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := uint64(decode(t, rec)["id"].(float64))

	rec = a.do(t, http.MethodPut, fmt.Sprintf("%s/%d", base, id), s.token, echo.Map{"value": 850})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 850, decode(t, rec)["value"])

	rec = a.do(t, http.MethodGet, base, s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var favs []model.Favorite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	assert.Len(t, favs, 1)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, id), s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("%s/%d", base, id), s.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshKeepsValidToken(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")

	rec := a.do(t, http.MethodPost, "/auth/token/refresh", s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, s.token, decode(t, rec)["token"])
}

func TestSignoutTwice(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")

	for i := 0; i < 2; i++ {
		rec := a.do(t, http.MethodPost, "/auth/signout", s.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Signed out", decode(t, rec)["message"])
	}

	rec := a.do(t, http.MethodPost, "/auth/signout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForeignEntriesForbidden(t *testing.T) {
	a := newApp(t)
	u1 := a.signupAndSignin(t, "u1@x.com")
	u2 := a.signupAndSignin(t, "u2@x.com")

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := a.do(t, method, fmt.Sprintf("/users/%d/entries", u2.id), u1.token, echo.Map{
			"label": "Lunch", "type": 0, "value": 10, "registeredAt": "2026-10-14",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
	}
}

func (a *app) doRaw(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestRefreshIgnoresUnreadableBody(t *testing.T) {
	a := newApp(t)
	s := a.signupAndSignin(t, "ana@x.com")

	rec := a.doRaw(http.MethodPost, "/auth/token/refresh", s.token, "{not json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, s.token, decode(t, rec)["token"])

	rec = a.doRaw(http.MethodPost, "/auth/token/refresh", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, service.CodeNoToken, decode(t, rec)["code"])

	claims, err := utils.DecodeToken(s.refresh)
	require.NoError(t, err)
	expired, err := utils.IssueToken(claims.Identity(), jwtCfg.Secret, -time.Minute)
	require.NoError(t, err)
	rec = a.doRaw(http.MethodPost, "/auth/token/refresh", expired, "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, service.CodeRefreshInvalid, decode(t, rec)["code"])
}
