package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/goalmap/goalmap/internal/engine"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/store"
)

func testServerWith(t *testing.T, opts Options) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Draws always land at the start of the walk.
	eng := engine.New(db, &priority.Selector{Float64: func() float64 { return 0 }})
	t.Cleanup(eng.Stop)
	return New(db, eng, "test-version", opts)
}

func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerWith(t, Options{DefaultPriority: 1, DefaultDecayRate: 0.001})
}

// do sends a request with an optional JSON body and returns the recorder.
func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := decode[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["db_path"] != ":memory:" {
		t.Errorf("db_path = %v, want :memory:", body["db_path"])
	}
}

func TestCORS(t *testing.T) {
	srv := testServerWith(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest("OPTIONS", "/api/goals", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q, want http://localhost:5173", got)
	}

	req = httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q, want empty", got)
	}
}

func TestSPAWithoutUI(t *testing.T) {
	SetUI(nil)
	srv := testServer(t)

	w := do(t, srv, "GET", "/", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSPAFallback(t *testing.T) {
	SetUI(fstest.MapFS{
		"index.html":    {Data: []byte("<html>goalmap</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	})
	t.Cleanup(func() { SetUI(nil) })
	srv := testServer(t)

	tests := []struct {
		path    string
		want    string
		noCache bool
	}{
		{"/", "<html>goalmap</html>", true},
		{"/assets/app.js", "console.log(1)", false},
		{"/timeline", "<html>goalmap</html>", true},
		{"/assets", "<html>goalmap</html>", true},
	}
	for _, tt := range tests {
		w := do(t, srv, "GET", tt.path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", tt.path, w.Code)
			continue
		}
		if w.Body.String() != tt.want {
			t.Errorf("GET %s: body = %q, want %q", tt.path, w.Body.String(), tt.want)
		}
		if got := w.Header().Get("Cache-Control") == "no-cache"; got != tt.noCache {
			t.Errorf("GET %s: no-cache = %v, want %v", tt.path, got, tt.noCache)
		}
	}
}
