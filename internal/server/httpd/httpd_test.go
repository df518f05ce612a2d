package httpd_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/props"
	"github.com/lunedb/lune/internal/server/httpd"
)

type namedEngine struct{ name string }

func (e namedEngine) Name() string                        { return e.name }
func (e namedEngine) Init(params map[string]string) error { return nil }

func newTestServer(t *testing.T) *httpd.Server {
	t.Helper()

	pr := props.NewStore()
	pr.SetDefaultEngine(string(engine.CategoryStorage), "aose")

	regs := map[engine.Category]*engine.Registry{
		engine.CategoryStorage: engine.NewRegistry(),
		engine.CategoryQuery:   engine.NewRegistry(),
	}
	regs[engine.CategoryStorage].Register(namedEngine{"aose"})
	regs[engine.CategoryStorage].Register(namedEngine{"memse"})

	env := &engine.Env{Props: pr, Registries: regs}

	eng := httpd.NewEngine(env)
	if err := eng.Init(map[string]string{"host": "127.0.0.1", "port": "0"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	srv, ok := eng.ProtocolServer().(*httpd.Server)
	if !ok {
		t.Fatal("ProtocolServer() is not an *httpd.Server")
	}
	return srv
}

func get(t *testing.T, srv *httpd.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListEngines(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/engines")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	storage := body["storage"]
	if len(storage) != 2 || storage[0] != "aose" || storage[1] != "memse" {
		t.Errorf("storage engines = %v, want [aose memse]", storage)
	}
	if got := body["sql"]; len(got) != 0 {
		t.Errorf("sql engines = %v, want empty", got)
	}
}

func TestListDefaults(t *testing.T) {
	rec := get(t, newTestServer(t), "/v1/defaults")

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["storage"] != "aose" {
		t.Errorf("defaults = %v, want storage=aose", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStartAndStop(t *testing.T) {
	srv := newTestServer(t)
	srv.SetEncryptionOptions(nil)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s:%d/healthz", srv.Host(), srv.Port()))
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestInitRejectsBadPort(t *testing.T) {
	eng := httpd.NewEngine(nil)
	if err := eng.Init(map[string]string{"port": "9x"}); err == nil {
		t.Error("Init accepted an unparseable port")
	}
}
