package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, api string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api", api}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginStoresTokenAndSendsIt(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "alice", body["username"])
			_ = json.NewEncoder(w).Encode(map[string]string{"username": "alice", "tier": "pro_bono", "token": "tok-123"})
		case "/api/auth/me":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]string{"username": "alice", "role": "user", "tier": "pro_bono"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "auth", "login", "-u", "alice", "-p", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as alice")

	data, err := os.ReadFile(filepath.Join(home, ".omniaudit", "token"))
	require.NoError(t, err)
	assert.Equal(t, "tok-123", string(data))

	out, err = runCLI(t, srv.URL, "auth", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Contains(t, out, "alice (user, tier pro_bono)")
}

func TestAPIErrorIncludesDetails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","details":[{"field":"name","rule":"required"}]}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "tasks", "create", "--name", "x")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, err.Error(), "name: required")
}

func TestAuditGetRejectsNonNumericID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := runCLI(t, "http://127.0.0.1:1", "audit", "get", "abc")
	assert.Error(t, err)
}

func TestLogoutWithoutTokenIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "http://127.0.0.1:1", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
}
