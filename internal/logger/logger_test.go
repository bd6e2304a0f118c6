package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveLogFilePathUsesWorkdirLogs(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval tmp dir: %v", err)
	}
	t.Chdir(dir)

	path, err := resolveLogFilePath(Options{Filename: "  "})
	if err != nil {
		t.Fatalf("resolve path: %v", err)
	}
	want := filepath.Join(dir, defaultLogDirName, defaultLogFilename)
	if got, _ := filepath.EvalSymlinks(path); got != want {
		t.Fatalf("path want %s got %s", want, got)
	}
}

func TestNewPerMode(t *testing.T) {
	cases := []struct {
		mode     string
		service  string
		wantFile bool
	}{
		{mode: "release", service: "worker", wantFile: true},
		{mode: "test", wantFile: true},
		{mode: " Debug ", wantFile: false},
	}
	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.mode), func(t *testing.T) {
			dir := t.TempDir()
			log := New(tc.mode, Options{Dir: dir, Filename: "cn.log", Service: tc.service})
			log.Info("table_occupied")
			_ = log.Sync()

			content, err := os.ReadFile(filepath.Join(dir, "cn.log"))
			if !tc.wantFile {
				if !os.IsNotExist(err) {
					t.Fatalf("debug mode must not create a log file, err=%v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
			line := string(content)
			if !strings.Contains(line, `"message":"table_occupied"`) {
				t.Fatalf("missing message: %s", line)
			}
			if tc.service != "" && !strings.Contains(line, `"service":"`+tc.service+`"`) {
				t.Fatalf("missing service field: %s", line)
			}
		})
	}
}

func TestForTenantAddsTenantField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	old := L
	L = zap.New(core)
	t.Cleanup(func() { L = old })

	ForTenant(7, "order_id", 42).Infow("order_advanced")
	ForTenant(0).Infow("no_tenant")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries want 2 got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["tenant_id"] != uint64(7) || fields["order_id"] != int64(42) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := entries[1].ContextMap()["tenant_id"]; ok {
		t.Fatalf("tenant_id should be omitted for zero tenant")
	}
}

func TestZFallsBackBeforeInit(t *testing.T) {
	old := L
	L = nil
	t.Cleanup(func() { L = old })

	if Z() == nil || Z() != Z() {
		t.Fatalf("fallback logger should be a stable instance")
	}
}
