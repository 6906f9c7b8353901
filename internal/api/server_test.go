package api_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sitecheck/internal/api"
	"sitecheck/internal/api/handler/v1handler"
	"sitecheck/internal/api/handler/webhandler"
	"sitecheck/internal/config"
	"sitecheck/pkg/allowlist"
	"sitecheck/pkg/logger"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, ping func(context.Context) error) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()

	logger.Setup(logger.DevelopmentEnvironment)

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubASN1, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubASN1})

	list := allowlist.New(t.Context(), "amazon.com")
	h, err := api.NewHandler(api.Deps{
		V1:   v1handler.Deps{Allowlist: list},
		Web:  webhandler.Deps{Allowlist: list},
		Ping: ping,
	}, api.Options{
		SecHandlerOptions: &v1handler.SecHandlerOptions{PublicKey: string(pubPEM)},
		RequestTimeout:    time.Minute,
		MetricsPath:       "/metrics",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return srv, priv
}

func fetch(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(b)
}

func newRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	require.NoError(t, err)

	return req
}

func TestNewHandler_Routes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, "Low Quality Website Detection Tool"},
		{"/healthz", http.StatusOK, `"ok"`},
		{"/specs/v1.yaml", http.StatusOK, "openapi: 3.0.3"},
		{"/v1/docs/", http.StatusOK, "Site Check Service"},
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/debug/pprof/", http.StatusOK, "goroutine"},
		{"/v1/allowlist", http.StatusUnauthorized, "missing bearer token"},
		{"/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := fetch(t, newRequest(t, http.MethodGet, srv.URL+tt.path))
			require.Equal(t, tt.status, resp.StatusCode)
			require.Contains(t, body, tt.contains)
			require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		})
	}
}

func TestNewHandler_AuthenticatedV1(t *testing.T) {
	srv, priv := newTestServer(t, nil)

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(priv)
	require.NoError(t, err)

	req := newRequest(t, http.MethodGet, srv.URL+"/v1/allowlist")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := fetch(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"domains":["amazon.com"]}`, body)
}

func TestNewHandler_HealthzFailing(t *testing.T) {
	srv, _ := newTestServer(t, func(context.Context) error { return errors.New("db down") })

	resp, body := fetch(t, newRequest(t, http.MethodGet, srv.URL+"/healthz"))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, body, "unavailable")
}

func TestNewHandler_Preflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := fetch(t, newRequest(t, http.MethodOptions, srv.URL+"/v1/checks"))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewHandler_InvalidPublicKey(t *testing.T) {
	_, err := api.NewHandler(api.Deps{}, api.Options{
		SecHandlerOptions: &v1handler.SecHandlerOptions{PublicKey: "not a key"},
	})
	require.Error(t, err)
}

func TestNewHandler_WithoutPublicKeyServesWebUI(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	list := allowlist.New(t.Context(), "amazon.com")
	h, err := api.NewHandler(api.Deps{
		V1:  v1handler.Deps{Allowlist: list},
		Web: webhandler.Deps{Allowlist: list},
	}, api.Options{
		SecHandlerOptions: &v1handler.SecHandlerOptions{PublicKey: ""},
		MetricsPath:       "/metrics",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, body := fetch(t, newRequest(t, http.MethodGet, srv.URL+"/"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Low Quality Website Detection Tool")

	resp, _ = fetch(t, newRequest(t, http.MethodGet, srv.URL+"/v1/allowlist"))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = fetch(t, newRequest(t, http.MethodGet, srv.URL+"/healthz"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewOptions_BulkDeadlineBelowRequestTimeout(t *testing.T) {
	tests := []struct {
		name     string
		bulk     time.Duration
		request  time.Duration
		deadline time.Duration
	}{
		{"configured value kept", 3*time.Minute + 30*time.Second, 4 * time.Minute, 3*time.Minute + 30*time.Second},
		{"longer than request timeout", 5 * time.Minute, 4 * time.Minute, 4*time.Minute - 24*time.Second},
		{"unset follows request timeout", 0, 100 * time.Second, 90 * time.Second},
		{"no request timeout", time.Minute, 0, time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg config.Config
			cfg.Bulk.Timeout = tc.bulk
			cfg.HTTP.RequestTimeout = tc.request

			opts := api.NewOptions(&cfg)
			require.Equal(t, tc.deadline, opts.Web.Deadline)
			if tc.request > 0 {
				require.Less(t, opts.Web.Deadline, opts.RequestTimeout)
			}
		})
	}
}
