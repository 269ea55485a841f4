package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/cities/internal/auth"
	"github.com/Makepad-fr/cities/internal/config"
	"github.com/Makepad-fr/cities/internal/model"
	"github.com/Makepad-fr/cities/internal/ui"
)

// cityServer is an in-memory city API.
type cityServer struct {
	mu       sync.Mutex
	cities   []model.City
	nextID   int64
	failWith int
	requests []string
	auth     []string
}

func (s *cityServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	if s.failWith != 0 && r.Method != http.MethodGet {
		w.WriteHeader(s.failWith)
		return
	}

	switch {
	case r.URL.Path == "/api/city" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(s.cities)
	case r.URL.Path == "/api/city" && r.Method == http.MethodPost:
		var c model.City
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.nextID++
		c.CityID = s.nextID
		s.cities = append(s.cities, c)
		_ = json.NewEncoder(w).Encode(c)
	case strings.HasPrefix(r.URL.Path, "/api/city/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/city/"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for i, c := range s.cities {
			if c.CityID != id {
				continue
			}
			switch r.Method {
			case http.MethodPut:
				var in model.City
				_ = json.NewDecoder(r.Body).Decode(&in)
				in.CityID = id
				s.cities[i] = in
				_ = json.NewEncoder(w).Encode(in)
			case http.MethodDelete:
				s.cities = append(s.cities[:i], s.cities[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *cityServer) lastRequest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ""
	}
	return s.requests[len(s.requests)-1]
}

type harness struct {
	srv    *cityServer
	url    string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(auth.TokenEnv, "")
	t.Setenv(config.PathEnv, "")
	t.Setenv(config.BaseURLEnv, "")

	srv := &cityServer{
		cities: []model.City{{CityID: 1, Name: "Berlin"}, {CityID: 2, Name: "Moscow"}},
		nextID: 2,
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	h := &harness{srv: srv, url: ts.URL, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	ui.SetOutput(h.out, h.errOut)
	t.Cleanup(func() {
		ui.SetOutput(nopWriter{}, nopWriter{})
		ui.SetTheme("classic")
	})
	return h
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return run(context.Background(), append([]string{"--api", h.url, "--theme", "mono"}, args...), strings.NewReader(""))
}

func TestListPlain(t *testing.T) {
	h := newHarness(t)

	code := h.run("ls", "--plain")
	require.Equal(t, 0, code, h.errOut.String())
	out := h.out.String()
	assert.Contains(t, out, "Total 2")
	assert.Contains(t, out, " 1. - Berlin #1")
	assert.Contains(t, out, " 2. - Moscow #2")
	assert.Equal(t, "GET /api/city", h.srv.lastRequest())
}

func TestRootWithoutTTYPrintsList(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run())
	assert.Contains(t, h.out.String(), "Berlin")
}

func TestAdd(t *testing.T) {
	h := newHarness(t)

	code := h.run("add", "New", "York")
	require.Equal(t, 0, code, h.errOut.String())
	assert.Contains(t, h.out.String(), "added #3 New York")
	assert.Equal(t, "POST /api/city", h.srv.lastRequest())
	assert.Len(t, h.srv.cities, 3)
}

func TestAddValidation(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("add", "Rome"))
	assert.Contains(t, h.errOut.String(), "at least 5")
	assert.Empty(t, h.srv.requests)

	assert.Equal(t, 2, h.run("add"))
}

func TestEdit(t *testing.T) {
	h := newHarness(t)

	code := h.run("edit", "2", "Saint", "Petersburg")
	require.Equal(t, 0, code, h.errOut.String())
	assert.Equal(t, "PUT /api/city/2", h.srv.lastRequest())
	assert.Equal(t, "Saint Petersburg", h.srv.cities[1].Name)
	assert.Contains(t, h.out.String(), "saved #2 Saint Petersburg")
}

func TestEditBadIndex(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("edit", "3", "Hamburg"))
	assert.Contains(t, h.errOut.String(), "index out of range: have 2, got 3")
	assert.Contains(t, h.errOut.String(), "cities ls --plain")

	assert.Equal(t, 2, h.run("edit", "two", "Hamburg"))
	assert.Contains(t, h.errOut.String(), "not a number")
}

func TestRemove(t *testing.T) {
	h := newHarness(t)

	code := h.run("rm", "1")
	require.Equal(t, 0, code, h.errOut.String())
	assert.Equal(t, "DELETE /api/city/1", h.srv.lastRequest())
	assert.Equal(t, []model.City{{CityID: 2, Name: "Moscow"}}, h.srv.cities)
	assert.Contains(t, h.out.String(), "removed #1 Berlin")
}

func TestRemoveServerFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.failWith = http.StatusInternalServerError

	assert.Equal(t, 1, h.run("rm", "1"))
	assert.Contains(t, h.errOut.String(), "500")
	assert.Len(t, h.srv.cities, 2)
}

func TestLoadFailureExitsOne(t *testing.T) {
	h := newHarness(t)
	code := run(context.Background(), []string{"--api", "http://127.0.0.1:1", "ls", "--plain"}, strings.NewReader(""))
	assert.Equal(t, 1, code)
	assert.Contains(t, h.errOut.String(), "load cities")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("frobnicate"))
	assert.Contains(t, h.errOut.String(), "unknown command")
	assert.Equal(t, 2, h.run("ls", "--nope"))
	assert.Equal(t, 2, h.run("rm"))
	assert.Equal(t, 2, h.run("auth"))
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("auth", "status"))
	assert.Contains(t, h.out.String(), "not logged in")

	require.Equal(t, 2, h.run("auth", "whoami"))

	require.Equal(t, 0, h.run("auth", "login", "--token", "Bearer s3cret"))
	require.Equal(t, 0, h.run("auth", "status"))
	assert.Contains(t, h.out.String(), "source: file")

	require.Equal(t, 0, h.run("auth", "whoami"))
	assert.Contains(t, h.out.String(), "Opaque token")

	require.Equal(t, 0, h.run("ls", "--plain"))
	h.srv.mu.Lock()
	assert.Equal(t, "Bearer s3cret", h.srv.auth[len(h.srv.auth)-1])
	h.srv.mu.Unlock()

	require.Equal(t, 0, h.run("auth", "logout"))
	require.Equal(t, 0, h.run("auth", "status"))
	assert.Contains(t, h.out.String(), "not logged in")
}

func TestAuthWorksWithBadBaseURL(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.BaseURLEnv, "::not a url")

	assert.Equal(t, 2, run(context.Background(), []string{"ls", "--plain"}, strings.NewReader("")))

	require.Equal(t, 0, run(context.Background(), []string{"auth", "login", "--token", "abc"}, strings.NewReader("")), h.errOut.String())
	require.Equal(t, 0, run(context.Background(), []string{"auth", "status"}, strings.NewReader("")), h.errOut.String())
	assert.Contains(t, h.out.String(), "source: file")
	require.Equal(t, 0, run(context.Background(), []string{"auth", "logout"}, strings.NewReader("")), h.errOut.String())
}

func TestAuthLoginReadsStdin(t *testing.T) {
	h := newHarness(t)
	code := run(context.Background(), []string{"--api", h.url, "auth", "login"}, strings.NewReader("from-stdin\n"))
	require.Equal(t, 0, code, h.errOut.String())

	ti, err := auth.GetToken()
	require.NoError(t, err)
	require.NotNil(t, ti)
	assert.Equal(t, "from-stdin", ti.Token)
}

func TestLogoutWithEnvToken(t *testing.T) {
	h := newHarness(t)
	t.Setenv(auth.TokenEnv, "env-token")
	require.Equal(t, 0, h.run("auth", "logout"))
	assert.Contains(t, h.out.String(), "nothing to delete")
}
