package version

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"
)

func TestCommand(t *testing.T) {
	Version, Commit = "v1.2.3", "abc123"
	t.Cleanup(func() { Version, Commit = "local", "" })

	cmd := Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var info Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out.String(), err)
	}
	if info.Version != "v1.2.3" || info.Commit != "abc123" || info.GoVersion != runtime.Version() {
		t.Errorf("unexpected version info %+v", info)
	}
}

func TestGet_Defaults(t *testing.T) {
	if got := Get(); got.Version != "local" || got.Branch != "" {
		t.Errorf("unexpected defaults %+v", got)
	}
}
