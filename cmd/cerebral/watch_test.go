package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunWatch_ReloadsAndReevaluates(t *testing.T) {
	cmd, _ := testCommand(t)
	out := &syncBuffer{}
	cmd.SetOut(out)

	rules := t.TempDir()
	dvt, err := os.ReadFile(testRuleset)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rules, "dvt.yaml"), dvt, 0o644); err != nil {
		t.Fatal(err)
	}

	watchFlags.rules = rules
	watchFlags.patients = "testdata/patients"
	watchFlags.parallel = 2
	watchFlags.debounce = 50 * time.Millisecond
	watchFlags.audit = false
	watchFlags.patterns = []string{testPatterns}
	watchFlags.contracts = []string{testContract}
	watchFlags.strict = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runWatch(cmd, nil) }()

	waitFor(t, "initial batch", func() bool {
		return strings.Contains(out.String(), "evaluations: 2  errors: 0")
	})

	second := strings.Replace(string(dvt), "id: NTDS_DVT", "id: NTDS_DVT_COPY", 1)
	if err := os.WriteFile(filepath.Join(rules, "dvt_copy.yaml"), []byte(second), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "re-evaluation after reload", func() bool {
		return strings.Contains(out.String(), "evaluations: 4  errors: 0")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch() did not return after cancel")
	}
}

func TestRunWatch_RequiresPatients(t *testing.T) {
	cmd, _ := testCommand(t)
	watchFlags.patients = ""
	if err := runWatch(cmd, nil); err == nil {
		t.Error("runWatch() without --patients should fail")
	}
}

func TestServeHTTP(t *testing.T) {
	testCommand(t)
	env, err := setup([]string{testPatterns}, nil)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	reg, err := loadRegistry(env, "testdata/rules", false)
	if err != nil {
		t.Fatalf("loadRegistry() error = %v", err)
	}
	session, err := newBatchSession(env, 1, false, false)
	if err != nil {
		t.Fatalf("newBatchSession() error = %v", err)
	}
	defer session.Close()
	session.metrics.Observe(&engine.Result{RulesetID: "NTDS_DVT", Family: ast.FamilyEvent, Outcome: ast.OutcomeYes}, time.Millisecond)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		serveHTTP(ctx, env, addr, newWatchMux(reg, session))
		close(stopped)
	}()

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + addr + path)
		if err != nil {
			return 0, ""
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	var body string
	waitFor(t, "metrics endpoint", func() bool {
		var code int
		code, body = get("/metrics")
		return code == http.StatusOK
	})
	if !strings.Contains(body, "cerebral_gates_evaluations_total") {
		t.Errorf("metrics body:\n%s", body)
	}

	if code, body := get("/readyz"); code != http.StatusOK || !strings.Contains(body, `"rulesets"`) {
		t.Errorf("/readyz = %d %s", code, body)
	}
	if code, _ := get("/healthz"); code != http.StatusOK {
		t.Errorf("/healthz = %d", code)
	}
	if code, body := get("/version"); code != http.StatusOK || !strings.Contains(body, Version) {
		t.Errorf("/version = %d %s", code, body)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("http server did not stop")
	}
}
