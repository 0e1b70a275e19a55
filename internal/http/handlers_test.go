package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/sbilab/dataviz/internal/http"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/internal/store/drivers/memory"
	"github.com/sbilab/dataviz/pkg/jwtx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := memory.NewStore()
	signer, err := jwtx.NewHMAC("HS256", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{Service: "dataviz", Level: "error", Format: "text"})

	router := httpapi.NewRouter(signer, "dataviz", 30*time.Minute, "test", []string{"*"}, st, logger)

	users := &service.UserService{Store: st}
	datasets := &service.DatasetService{Store: st}
	router.UserService = users
	router.OAuthService = service.NewOAuthService("test-client")
	router.AuthnService = service.NewAuthnService(users, signer, router.OAuthService)
	router.DatasetService = datasets
	router.PlotService = &service.PlotService{Store: st, Datasets: datasets}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) != nil {
		decoded = nil
	}
	return resp, decoded
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"username": strings.Split(email, "@")[0],
		"password": "hunter22secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func uploadCSV(t *testing.T, srv *httptest.Server, token, name, csvText string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	fw, err := mw.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvText))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/data/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegisterLoginAndMe(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	token := registerAndLogin(t, srv, "alice@example.com")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter22secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bearer", body["token_type"])

	resp, body = doJSON(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice@example.com", body["email"])
	require.Equal(t, "alice", body["username"])

	resp, body = doJSON(t, srv, http.MethodPut, "/api/auth/me", token, map[string]any{
		"full_name": "Alice Example",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Alice Example", body["full_name"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	registerAndLogin(t, srv, "alice@example.com")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "othersecret99",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "duplicate_user", body["error"])
}

func TestLoginFormEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	registerAndLogin(t, srv, "alice@example.com")

	form := "username=alice%40example.com&password=hunter22secret"
	resp, err := srv.Client().Post(srv.URL+"/api/auth/login-form",
		"application/x-www-form-urlencoded", strings.NewReader(form))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["access_token"])
	require.Equal(t, "bearer", body["token_type"])
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	registerAndLogin(t, srv, "alice@example.com")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", body["error"])
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/data/datasets"},
		{http.MethodGet, "/api/plots"},
		{http.MethodPost, "/api/plots/generate"},
	} {
		resp, _ := doJSON(t, srv, probe.method, probe.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", probe.method, probe.path)
	}

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/data/datasets", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadListAndStats(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	created := uploadCSV(t, srv, token, "measurements", "a,b\n1,x\n2,y\n")
	require.Equal(t, "measurements", created["name"])
	require.Equal(t, float64(2), created["row_count"])
	require.Equal(t, []any{"a", "b"}, created["columns"])

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/data/datasets", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	id := created["id"].(string)
	resp, body := doJSON(t, srv, http.MethodGet, "/api/data/datasets/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	require.Equal(t, float64(1), first["a"])
	require.Equal(t, "x", first["b"])

	resp, body = doJSON(t, srv, http.MethodGet, "/api/data/datasets/"+id+"/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), body["total_rows"])

	resp, body = doJSON(t, srv, http.MethodDelete, "/api/data/datasets/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/data/datasets/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data.xlsx")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not a csv"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/data/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	aliceToken := registerAndLogin(t, srv, "alice@example.com")
	bobToken := registerAndLogin(t, srv, "bob@example.com")

	created := uploadCSV(t, srv, aliceToken, "private", "a\n1\n")
	id := created["id"].(string)

	// Bob probing Alice's dataset gets the same answer as for a random ID.
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/data/datasets/"+id, bobToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, srv, http.MethodDelete, "/api/data/datasets/"+id, bobToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlotLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice@example.com")

	created := uploadCSV(t, srv, token, "data", "age,score\n30,80\n40,90\n")
	datasetID := created["id"].(string)

	resp, plot := doJSON(t, srv, http.MethodPost, "/api/plots", token, map[string]any{
		"dataset_id": datasetID,
		"title":      "scores",
		"plot_type":  "scatter",
		"x_axis":     "age",
		"y_axis":     "score",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	plotID := plot["id"].(string)

	resp, chart := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/plots/%s/data", plotID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := chart["data"].([]any)
	require.Len(t, data, 1)
	tr := data[0].(map[string]any)
	require.Equal(t, []any{30.0, 40.0}, tr["x"])
	require.Equal(t, []any{80.0, 90.0}, tr["y"])

	resp, generated := doJSON(t, srv, http.MethodPost, "/api/plots/generate", token, map[string]any{
		"dataset_id": datasetID,
		"plot_type":  "bar",
		"x_axis":     "age",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, generated, "layout")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/plots/generate", token, map[string]any{
		"dataset_id": datasetID,
		"plot_type":  "pie",
		"x_axis":     "age",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unsupported_plot_type", body["error"])

	resp, body = doJSON(t, srv, http.MethodPost, "/api/plots/generate", token, map[string]any{
		"dataset_id": datasetID,
		"plot_type":  "bar",
		"x_axis":     "shoe_size",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unknown_column", body["error"])

	resp, body = doJSON(t, srv, http.MethodDelete, "/api/plots/"+plotID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	resp, body = doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}
