package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/categorize"
	"github.com/shelfline/feedengine/internal/feed"
	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/ingest"
	"github.com/shelfline/feedengine/internal/ratelimit"
	"github.com/shelfline/feedengine/internal/reranker"
	"github.com/shelfline/feedengine/internal/search"
	"github.com/shelfline/feedengine/internal/server"
	"github.com/shelfline/feedengine/internal/service/embedding"
	"github.com/shelfline/feedengine/internal/testutil"
)

var testSrv *httptest.Server

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	logger := testutil.TestLogger()
	db, err := tc.NewTestDB(context.Background(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	jwtMgr, err := auth.NewJWTManager("test-session-secret-value", 30*24*time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetcher := fetchguard.NewClient(fetchguard.NewCache(), 5*time.Second)
	ingestor := ingest.New(db, fetcher, categorize.NoopProvider{}, embedding.NewNoopProvider(8))
	feedHandler := feed.New(db, reranker.NewCache(), "", false)

	searchIndex, err := search.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	h := server.NewHandlers(server.HandlersDeps{
		DB:           db,
		JWTMgr:       jwtMgr,
		Ingestor:     ingestor,
		Fetcher:      fetcher,
		Feed:         feedHandler,
		Search:       searchIndex,
		Logger:       logger,
		CookieName:   "feedengine_session",
		CookieSecure: false,
		SessionTTL:   30 * 24 * time.Hour,
	})

	srv := server.New(server.ServerConfig{
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Logger:       logger,
		Limiter:      ratelimit.NewMemoryLimiter(100, 100),
	}, h)

	testSrv = httptest.NewServer(srv.Handler())
	defer testSrv.Close()

	os.Exit(m.Run())
}

func postJSON(t *testing.T, client *http.Client, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := client.Post(testSrv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func newCookieClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

func TestSignupLoginMe(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("signup-%d@example.com", time.Now().UnixNano())

	resp := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	meResp, err := client.Get(testSrv.URL + "/auth/me")
	require.NoError(t, err)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var envelope struct {
		Data struct {
			User *struct {
				Email string `json:"email"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&envelope))
	require.NotNil(t, envelope.Data.User)
	require.Equal(t, email, envelope.Data.User.Email)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())

	first := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	require.Equal(t, http.StatusCreated, first.StatusCode)
	first.Body.Close()

	second := postJSON(t, newCookieClient(), "/auth/signup", map[string]string{"email": email, "password": "another-password"})
	require.Equal(t, http.StatusConflict, second.StatusCode)
	second.Body.Close()
}

func TestLoginWrongPasswordReturns401(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("wrongpw-%d@example.com", time.Now().UnixNano())

	signup := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	signup.Body.Close()

	resp := postJSON(t, newCookieClient(), "/auth/login", map[string]string{"email": email, "password": "wrong-password"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLinksRequireSession(t *testing.T) {
	client := &http.Client{}
	resp := postJSON(t, client, "/links", map[string]string{"url": "https://example.com/article"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndFetchFeed(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("feed-%d@example.com", time.Now().UnixNano())
	signup := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	signup.Body.Close()

	create := postJSON(t, client, "/links", map[string]string{"url": "https://example.com/a-feed-test-article"})
	defer create.Body.Close()
	require.Equal(t, http.StatusCreated, create.StatusCode)

	feedResp, err := client.Get(testSrv.URL + "/feed?limit=10")
	require.NoError(t, err)
	defer feedResp.Body.Close()
	require.Equal(t, http.StatusOK, feedResp.StatusCode)

	var envelope struct {
		Data struct {
			Links []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(feedResp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Links, 1)
}

func TestSearchFindsCreatedLink(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("search-%d@example.com", time.Now().UnixNano())
	signup := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	signup.Body.Close()

	create := postJSON(t, client, "/links", map[string]string{"url": "https://example.com/a-searchable-article"})
	defer create.Body.Close()
	require.Equal(t, http.StatusCreated, create.StatusCode)

	searchResp, err := client.Get(testSrv.URL + "/search?q=searchable")
	require.NoError(t, err)
	defer searchResp.Body.Close()
	require.Equal(t, http.StatusOK, searchResp.StatusCode)
}

func TestUnfurlRejectsPrivateAddress(t *testing.T) {
	client := newCookieClient()
	email := fmt.Sprintf("unfurl-%d@example.com", time.Now().UnixNano())
	signup := postJSON(t, client, "/auth/signup", map[string]string{"email": email, "password": "correct-password"})
	signup.Body.Close()

	resp := postJSON(t, client, "/unfurl", map[string]string{"url": "http://169.254.169.254/"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
