package employees_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
	"github.com/odyssey-erp/company-manager/internal/auth"
	"github.com/odyssey-erp/company-manager/internal/employees"
	"github.com/odyssey-erp/company-manager/internal/listing"
	"github.com/odyssey-erp/company-manager/internal/shared"
	"github.com/odyssey-erp/company-manager/internal/view"
	_ "github.com/odyssey-erp/company-manager/testing"
)

type fakeAPI struct {
	mu            sync.Mutex
	employees     []employees.Employee
	companies     []employees.CompanyOption
	requests      []string
	lastBody      map[string]any
	companiesDown bool
	listExpired   bool
}

func newFakeAPI(n int) *fakeAPI {
	api := &fakeAPI{companies: []employees.CompanyOption{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Globex"}}}
	for i := 1; i <= n; i++ {
		api.employees = append(api.employees, employees.Employee{
			ID:          int64(i),
			FirstName:   "Worker",
			LastName:    fmt.Sprintf("%02d", i),
			CompanyID:   1,
			CompanyName: "Acme",
		})
	}
	return api
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/api/companies" {
		if a.companiesDown {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(apiclient.ListEnvelope[employees.CompanyOption]{Data: a.companies})
		return
	}

	if a.listExpired {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/employees")
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		a.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&a.lastBody)
	}
	switch {
	case path == "" && r.Method == http.MethodGet:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		start := min((page-1)*limit, len(a.employees))
		end := min(start+limit, len(a.employees))
		_ = json.NewEncoder(w).Encode(apiclient.ListEnvelope[employees.Employee]{
			Data:       a.employees[start:end],
			Pagination: apiclient.Meta{Page: page, Limit: limit, Total: len(a.employees)},
		})
	case path == "" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusCreated)
	default:
		id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/"), 10, 64)
		for i, e := range a.employees {
			if e.ID != id {
				continue
			}
			switch r.Method {
			case http.MethodGet:
				_ = json.NewEncoder(w).Encode(map[string]any{"data": e})
			case http.MethodDelete:
				a.employees = append(a.employees[:i], a.employees[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

type fixture struct {
	api      *fakeAPI
	router   chi.Router
	sessions *shared.SessionManager
	cookie   *http.Cookie
}

func newFixture(t *testing.T, rows int) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	lifecycle := auth.NewLifecycle(sessions, csrf)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	api := newFakeAPI(rows)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	service := employees.NewService(apiclient.New(srv.URL+"/api", time.Second, nil))
	h := employees.NewHandler(nil, service, templates, csrf, lifecycle, listing.NewRedisStore(client, time.Hour), 10)
	r := chi.NewRouter()
	r.Route("/employees", func(r chi.Router) {
		r.Use(auth.RequireSession)
		h.MountRoutes(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, lifecycle.Begin(sess, "tok", auth.Identity{ID: "1", Username: "octocat"}))
	require.NoError(t, sessions.Commit(context.Background(), httptest.NewRecorder(), req, sess))
	return &fixture{api: api, router: r, sessions: sessions, cookie: &http.Cookie{Name: sessions.CookieName(), Value: sess.ID}}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(f.cookie)
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(ctx, res, req, sess))
	return res
}

func TestListShowsCompanyColumn(t *testing.T) {
	f := newFixture(t, 12)
	res := f.do(t, http.MethodGet, "/employees", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Worker 01")
	assert.Contains(t, body, "<td>Acme</td>")
	assert.Contains(t, body, "Page 1 of 2")
}

func TestNewModalOffersCompanies(t *testing.T) {
	f := newFixture(t, 2)
	res := f.do(t, http.MethodGet, "/employees/new", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `<option value="1">Acme</option>`)
	assert.Contains(t, body, `<option value="2">Globex</option>`)
	assert.Contains(t, body, "Add Employee")
}

func TestEditPreselectsCompany(t *testing.T) {
	f := newFixture(t, 2)
	res := f.do(t, http.MethodGet, "/employees/2/edit", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `<option value="1" selected>Acme</option>`)
	assert.Contains(t, body, `value="02"`)
	assert.Contains(t, body, `action="/employees/2"`)
}

func TestEditFailsWhenOptionsFail(t *testing.T) {
	f := newFixture(t, 2)
	f.api.companiesDown = true
	res := f.do(t, http.MethodGet, "/employees/2/edit", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/employees", res.Header().Get("Location"))
}

func TestMissingCompanyRejectedWithoutRequest(t *testing.T) {
	f := newFixture(t, 2)
	f.do(t, http.MethodGet, "/employees/new", nil)
	before := f.api.count()

	res := f.do(t, http.MethodPost, "/employees", url.Values{"first_name": {"Ada"}, "last_name": {"Lovelace"}, "company_id": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, before, f.api.count())
	body := res.Body.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `value="Ada"`)
	assert.Contains(t, body, `<option value="2">Globex</option>`)
}

func TestCreatePostsDraftAndClosesModal(t *testing.T) {
	f := newFixture(t, 2)
	res := f.do(t, http.MethodPost, "/employees", url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Lovelace"},
		"company_id": {"2"},
		"email":      {" ada@globex.test "},
	})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/employees", res.Header().Get("Location"))
	assert.Equal(t, float64(2), f.api.lastBody["company_id"])
	assert.Equal(t, "ada@globex.test", f.api.lastBody["email"])

	res = f.do(t, http.MethodGet, "/employees", nil)
	assert.Contains(t, res.Body.String(), "Employee created successfully")
	assert.NotContains(t, res.Body.String(), "modal-backdrop")
}

func TestDeleteOnlyItemOfLastPage(t *testing.T) {
	f := newFixture(t, 21)
	f.do(t, http.MethodGet, "/employees?page=3", nil)

	res := f.do(t, http.MethodPost, "/employees/21/delete", url.Values{})
	assert.Equal(t, "/employees?page=2", res.Header().Get("Location"))
}

func TestNewModalUnauthorizedListingEndsSession(t *testing.T) {
	f := newFixture(t, 2)
	f.api.listExpired = true

	res := f.do(t, http.MethodGet, "/employees/new", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login?expired=1", res.Header().Get("Location"))

	res = f.do(t, http.MethodGet, "/employees", nil)
	assert.Equal(t, "/login", res.Header().Get("Location"))
}

func TestMalformedCompanyRejectedWithoutRequest(t *testing.T) {
	f := newFixture(t, 2)
	f.do(t, http.MethodGet, "/employees/new", nil)
	before := f.api.count()

	res := f.do(t, http.MethodPost, "/employees", url.Values{"first_name": {" Ada "}, "last_name": {""}, "company_id": {"abc"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, before, f.api.count())
	body := res.Body.String()
	assert.Contains(t, body, "Please fill in all required fields.")
	assert.Contains(t, body, "This value is not valid.")
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `value="Ada"`)
	assert.Contains(t, body, `<option value="2">Globex</option>`)
}
