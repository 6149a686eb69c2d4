package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method   string
	resource string
	status   int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (o *recordingObserver) ObserveUpstream(method, resource string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, recordedCall{method: method, resource: resource, status: status})
}

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestDoSendsBearerTokenAndDecodesEnvelope(t *testing.T) {
	var gotAuth, gotQuery, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Acme"}],"pagination":{"page":2,"limit":10,"total":11,"totalPages":2}}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := New(srv.URL+"/api/", time.Second, obs)

	var env ListEnvelope[item]
	err := client.Do(context.Background(), "tok", http.MethodGet, "/companies", PageQuery(2, 10), nil, &env)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/companies", gotPath)
	assert.Equal(t, "limit=10&page=2", gotQuery)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Acme", env.Data[0].Name)
	assert.Equal(t, Meta{Page: 2, Limit: 10, Total: 11, TotalPages: 2}, env.Pagination)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, recordedCall{method: http.MethodGet, resource: "/companies", status: 200}, obs.calls[0])
}

func TestDoEncodesJSONBody(t *testing.T) {
	var got map[string]any
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"name":"Acme"}`))
	}))
	defer srv.Close()

	var out item
	err := New(srv.URL, time.Second, nil).Do(context.Background(), "tok", http.MethodPost, "/companies", nil, map[string]string{"name": "Acme"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, int64(7), out.ID)
}

func TestDoOmitsAuthorizationWithoutToken(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, time.Second, nil).Do(context.Background(), "", http.MethodDelete, "/companies/3", nil, nil, nil))
	assert.False(t, present)
}

func TestDoStatusErrors(t *testing.T) {
	cases := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		unauthorized bool
	}{
		{name: "error string", status: http.StatusBadRequest, body: `{"error":"Name is required"}`, wantMessage: "Name is required"},
		{name: "message field", status: http.StatusConflict, body: `{"message":"Company already exists"}`, wantMessage: "Company already exists"},
		{name: "nested error", status: http.StatusUnprocessableEntity, body: `{"error":{"message":"Invalid email"}}`, wantMessage: "Invalid email"},
		{name: "unstructured", status: http.StatusInternalServerError, body: `<html>oops</html>`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Invalid token"}`, wantMessage: "Invalid token", unauthorized: true},
		{name: "forbidden", status: http.StatusForbidden, unauthorized: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second, nil).Do(context.Background(), "tok", http.MethodGet, "/companies/1", nil, nil, nil)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, KindStatus, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantMessage, apiErr.UserMessage())
			assert.Equal(t, tc.unauthorized, IsUnauthorized(err))
		})
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	err := New(url, time.Second, obs).Do(context.Background(), "tok", http.MethodGet, "/employees", nil, nil, nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.False(t, IsUnauthorized(err))
	assert.NotEmpty(t, apiErr.UserMessage())
	require.Len(t, obs.calls, 1)
	assert.Equal(t, 0, obs.calls[0].status)
}

func TestDoDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	var env ListEnvelope[item]
	err := New(srv.URL, time.Second, nil).Do(context.Background(), "tok", http.MethodGet, "/companies", nil, nil, &env)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "/companies", resourceOf("/companies"))
	assert.Equal(t, "/companies/{id}", resourceOf("/companies/42"))
	assert.Equal(t, "/auth/{id}", resourceOf("/auth/github"))
}

func TestItemAcceptsBareAndWrappedRecords(t *testing.T) {
	var bare, wrapped Item[item]
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"name":"Bare"}`), &bare))
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":4,"name":"Wrapped"}}`), &wrapped))
	assert.Equal(t, item{ID: 3, Name: "Bare"}, bare.Value)
	assert.Equal(t, item{ID: 4, Name: "Wrapped"}, wrapped.Value)
}
