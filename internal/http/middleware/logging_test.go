package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes the JSON log lines written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.POST("/webhook/mentions", func(c *gin.Context) {
		v, _ := c.Get(requestIDKey)
		seen = asString(v)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name, header, value string
	}{
		{"generated", "", ""},
		{"canonical header", requestIDHeader, "Z-REQ-123"},
		{"lowercase header", strings.ToLower(requestIDHeader), "abc-123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/mentions", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("response id %q, context id %q", got, seen)
			}
			if tc.value != "" && got != tc.value {
				t.Fatalf("request id = %q, want %q", got, tc.value)
			}
		})
	}
}

func TestLogger_LevelFollowsOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/interactions/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/webhook/mentions", func(c *gin.Context) {
		_ = c.Error(errors.New("upstream fetch failed"))
		c.Status(http.StatusBadRequest)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, rq := range []struct{ method, path string }{
		{http.MethodGet, "/interactions/abc?page=2"},
		{http.MethodGet, "/missing"},
		{http.MethodPost, "/webhook/mentions"},
		{http.MethodGet, "/boom"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(rq.method, rq.path, nil))
	}

	lines := logLines(t, buf)
	want := []struct{ level, path string }{
		{"info", "/interactions/:id"},
		{"warn", "/missing"},
		{"error", "/webhook/mentions"},
		{"error", "/boom"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d log lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["path"] != w.path {
			t.Fatalf("line %d = level %v path %v, want %s %s", i, lines[i]["level"], lines[i]["path"], w.level, w.path)
		}
		if lines[i]["request_id"] == "" || lines[i]["status"] == nil {
			t.Fatalf("line %d lacks request fields: %v", i, lines[i])
		}
	}
	if lines[0]["query"] != "page=2" {
		t.Fatalf("query = %v", lines[0]["query"])
	}
	if lines[2]["errors"] == nil {
		t.Fatalf("gin errors not logged: %v", lines[2])
	}
}

func TestRecovery(t *testing.T) {
	cases := []struct {
		name     string
		handler  gin.HandlerFunc
		wantJSON bool
	}{
		{"before write", func(*gin.Context) { panic("kaboom") }, true},
		{"after write", func(c *gin.Context) {
			c.String(http.StatusOK, "partial-body")
			panic("late kaboom")
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			buf := captureLogger(t)
			r := gin.New()
			r.Use(RequestID(), Logger(), Recovery())
			r.GET("/panic", tc.handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

			isJSON := strings.Contains(w.Header().Get("Content-Type"), "application/json")
			if isJSON != tc.wantJSON {
				t.Fatalf("json body = %v, want %v (body %q)", isJSON, tc.wantJSON, w.Body.String())
			}
			if tc.wantJSON {
				var body map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("invalid json body: %v", err)
				}
				if w.Code != http.StatusInternalServerError || body["code"] != "internal_error" || body["request_id"] == "" {
					t.Fatalf("unexpected response %d %v", w.Code, body)
				}
			}
			if !strings.Contains(buf.String(), "panic recovered") {
				t.Fatalf("expected panic log, got:\n%s", buf.String())
			}
		})
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, withLogger := range []bool{false, true} {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		if withLogger {
			r.Use(Logger())
		}
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("custom")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))

		first := logLines(t, buf)[0]
		if first["message"] != "custom" {
			t.Fatalf("withLogger=%v: first line %v", withLogger, first)
		}
		if _, ok := first["request_id"]; ok != withLogger {
			t.Fatalf("withLogger=%v: request_id present=%v", withLogger, ok)
		}
	}
}

func TestHelpers_asString_and_truncate(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" {
		t.Fatalf("asString failed")
	}
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestLogger_MasksSensitiveHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(LogOptions{LogHeaders: true, MaskHeaders: []string{"x-session"}}))
	r.POST("/hook", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set(HeaderSignature, "deadbeef")
	req.Header.Set("X-Session", "s3cr3t")
	req.Header.Set("X-Trace", "visible")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"secret-token", "deadbeef", "s3cr3t"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, redacted) {
		t.Fatalf("expected masked headers and visible ones, got:\n%s", out)
	}
}

func TestLogger_PropagatesToRequestContext_AndSkipsPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(LogOptions{SkipPaths: []string{"/metrics"}}))
	r.GET("/svc", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/svc", nil)
	req.Header.Set(requestIDHeader, "rid-ctx")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var sawService bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if m["path"] == "/metrics" {
			t.Fatalf("skipped path was logged: %s", line)
		}
		if m["message"] == "from service" {
			sawService = true
			if m["request_id"] != "rid-ctx" {
				t.Fatalf("context logger missing request_id: %s", line)
			}
		}
	}
	if !sawService {
		t.Fatalf("service log missing:\n%s", buf.String())
	}
}
