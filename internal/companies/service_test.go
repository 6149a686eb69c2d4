package companies

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/company-manager/internal/apiclient"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func recordingBackend(t *testing.T, status int, response string) (*Service, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &call.body))
		}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return NewService(apiclient.New(srv.URL+"/api", time.Second, nil)), &calls
}

func TestServiceList(t *testing.T) {
	svc, calls := recordingBackend(t, http.StatusOK, `{"data":[{"id":1,"name":"Acme"}],"pagination":{"page":2,"limit":10,"total":11,"totalPages":2}}`)

	env, err := svc.List(context.Background(), "tok", 2, 10)
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Acme", env.Data[0].Name)
	assert.Equal(t, 11, env.Pagination.Total)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/api/companies", call.path)
	assert.Equal(t, "limit=10&page=2", call.query)
	assert.Equal(t, "Bearer tok", call.auth)
}

func TestServiceWritesUseExpectedRoutes(t *testing.T) {
	svc, calls := recordingBackend(t, http.StatusOK, `{}`)
	ctx := context.Background()
	draft := &Draft{Name: "Acme", Email: "hi@acme.test", Address: "1 Road", Website: "https://acme.test"}

	require.NoError(t, svc.Create(ctx, "tok", draft))
	require.NoError(t, svc.Update(ctx, "tok", 7, draft))
	require.NoError(t, svc.Delete(ctx, "tok", 7))

	require.Len(t, *calls, 3)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, "/api/companies", (*calls)[0].path)
	assert.Equal(t, map[string]any{"name": "Acme", "email": "hi@acme.test", "address": "1 Road", "website": "https://acme.test"}, (*calls)[0].body)

	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	assert.Equal(t, "/api/companies/7", (*calls)[1].path)
	assert.NotContains(t, (*calls)[1].body, "id")

	assert.Equal(t, http.MethodDelete, (*calls)[2].method)
	assert.Equal(t, "/api/companies/7", (*calls)[2].path)
}

func TestServiceGetDecodesWrappedRecord(t *testing.T) {
	svc, calls := recordingBackend(t, http.StatusOK, `{"data":{"id":3,"name":"Globex","website":"https://globex.test"}}`)
	company, err := svc.Get(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.Equal(t, Company{ID: 3, Name: "Globex", Website: "https://globex.test"}, company)
	assert.Equal(t, "/api/companies/3", (*calls)[0].path)
}

func TestServiceRejectsInvalidIDWithoutRequest(t *testing.T) {
	svc, calls := recordingBackend(t, http.StatusOK, `{}`)
	ctx := context.Background()

	_, err := svc.Get(ctx, "tok", 0)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, svc.Update(ctx, "tok", -1, &Draft{Name: "x"}), ErrInvalidID)
	assert.ErrorIs(t, svc.Delete(ctx, "tok", 0), ErrInvalidID)
	assert.Empty(t, *calls)
}

func TestServiceSurfacesBackendError(t *testing.T) {
	svc, _ := recordingBackend(t, http.StatusConflict, `{"error":"Company name already exists"}`)
	err := svc.Create(context.Background(), "tok", &Draft{Name: "Acme"})
	require.Error(t, err)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Company name already exists", apiErr.UserMessage())
}
