package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/acharya-hq/smokecheck/internal/api"
	"github.com/acharya-hq/smokecheck/internal/config"
	"github.com/acharya-hq/smokecheck/internal/twin"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand("test")
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func startTwin(t *testing.T, opts ...twin.Option) (*twin.Server, string) {
	t.Helper()
	tw := twin.New(append([]twin.Option{twin.WithLogger(zaptest.NewLogger(t))}, opts...)...)
	srv := httptest.NewServer(tw)
	t.Cleanup(srv.Close)
	return tw, srv.URL
}

func TestRunPasses(t *testing.T) {
	_, url := startTwin(t)

	out, err := execute(t, "run", "--base-url", url)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, GetExitCode(err))
	assert.Contains(t, out, "🧪 Testing Company Tests System")
	assert.Contains(t, out, "5. Get test details...")
	assert.Contains(t, out, "🎉 company-tests complete! (5 passed, 0 failed, 0 skipped)")
}

func TestRunSeveralChecklists(t *testing.T) {
	_, url := startTwin(t)

	out, err := execute(t, "run", "--base-url", url, "single-company-test", "company-tests-full")
	require.NoError(t, err)
	assert.Contains(t, out, "🎉 single-company-test complete!")
	assert.Contains(t, out, "🎉 company-tests-full complete!")
}

func TestRunFailureExitCode(t *testing.T) {
	tw, url := startTwin(t)
	tw.Faults().Set(twin.Fault{Path: "/api/candidate/company-tests", StatusCode: http.StatusInternalServerError})

	out, err := execute(t, "run", "--base-url", url)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 checklists failed")
	assert.Contains(t, out, "❌ Get assigned company tests failed")
	assert.Contains(t, out, "finished with failures")
}

func TestRunStrictFlag(t *testing.T) {
	tw, url := startTwin(t)
	tw.Faults().Set(twin.Fault{Path: "/api/candidate/company-tests", StatusCode: http.StatusInternalServerError})

	out, err := execute(t, "run", "--base-url", url, "--strict")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "💥 company-tests aborted (3 passed, 1 failed, 1 skipped)")
	assert.NotContains(t, out, "5. Get test details")
}

func TestRunConfigFile(t *testing.T) {
	tw, url := startTwin(t, twin.WithUsers(
		twin.User{Username: "rita", Password: "pw", Role: twin.RoleRecruiter},
		twin.User{Username: "candidate1", Password: "password123", Role: twin.RoleCandidate},
	))
	tw.Faults().Set(twin.Fault{Path: "/api/candidate/company-tests", StatusCode: http.StatusInternalServerError})

	path := filepath.Join(t.TempDir(), "smokecheck.yaml")
	content := fmt.Sprintf(`base_url: %s
timeout: 2s
credentials:
  recruiter:
    username: rita
    password: pw
fatal_overrides:
  Get assigned company tests: true
`, url)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := execute(t, "run", "--config", path)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✅ Recruiter login successful")
	assert.Contains(t, out, "💥 company-tests aborted")
}

func TestRunBaseURLFromEnv(t *testing.T) {
	_, url := startTwin(t)

	buf := &bytes.Buffer{}
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvBaseURL, url)
	cmd := NewRootCommand("test")
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"run", "single-company-test"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), "🎉 single-company-test complete!")
}

func TestRunJSONFormat(t *testing.T) {
	_, url := startTwin(t)

	out, err := execute(t, "run", "--base-url", url, "--format", "json", "single-company-test")
	require.NoError(t, err)

	var results []jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "single-company-test", results[0].Checklist)
	assert.True(t, results[0].Passed)
	require.Len(t, results[0].Steps, 3)
	assert.Equal(t, "passed", results[0].Steps[2].Status)
	assert.Equal(t, "verify", results[0].Steps[2].Action)
	assert.NotEmpty(t, results[0].RunID)
}

func TestRunReset(t *testing.T) {
	_, url := startTwin(t)

	_, err := execute(t, "run", "--base-url", url)
	require.NoError(t, err)

	out, err := execute(t, "run", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 assigned company tests")

	out, err = execute(t, "run", "--base-url", url, "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 assigned company tests")
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown checklist", []string{"run", "--base-url", "http://127.0.0.1:1", "nope"}, "unknown built-in checklist"},
		{"missing file", []string{"run", "--base-url", "http://127.0.0.1:1", "./missing.yaml"}, "checklist path"},
		{"bad base url", []string{"run", "--base-url", "ftp://example.com"}, "invalid config"},
		{"bad timeout", []string{"run", "--timeout", "-1s"}, "timeout must be positive"},
		{"bad format", []string{"run", "--format", "yaml"}, "invalid format"},
		{"missing config", []string{"run", "--config", "/nonexistent/smokecheck.yaml"}, "loading config"},
		{"unknown flag", []string{"run", "--nope"}, "unknown flag"},
		{"list takes no args", []string{"list", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := execute(t, "run", "--base-url", url, "--timeout", "1s")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "❌ Recruiter login failed: login:")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "company-tests ")
	assert.Contains(t, out, "company-tests-full")
	assert.Contains(t, out, "single-company-test    3 steps  Single Company Test Assignment")
}

func TestAdminCommands(t *testing.T) {
	tw, url := startTwin(t)

	out, err := execute(t, "admin", "health", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)

	_, err = execute(t, "admin", "fault", "/api/login", "503", "--base-url", url, "--body", `{"detail":"down"}`)
	require.NoError(t, err)
	f, ok := tw.Faults().Check("/api/login")
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, f.StatusCode)
	assert.Equal(t, `{"detail":"down"}`, f.Body)

	out, err = execute(t, "run", "--base-url", url)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `status 503: {"detail":"down"}`)

	_, err = execute(t, "admin", "fault", "--clear", "--base-url", url)
	require.NoError(t, err)
	_, ok = tw.Faults().Check("/api/login")
	assert.False(t, ok)

	out, err = execute(t, "admin", "requests", "--base-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "/api/login")

	_, err = execute(t, "admin", "reset", "--base-url", url)
	require.NoError(t, err)
	assert.Len(t, tw.Requests(), 1)

	_, err = execute(t, "admin", "fault", "/api/login", "abc", "--base-url", url)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = execute(t, "admin", "fault", "/api/login", "500", "--body", "{nope", "--base-url", url)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = execute(t, "admin", "fault", "/api/login", "--base-url", url)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAdminHealthUnreachable(t *testing.T) {
	_, err := execute(t, "admin", "health", "--base-url", "http://127.0.0.1:1")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestServeTwin(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveTwin(ctx, ln, twin.New(), zaptest.NewLogger(t))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/admin/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c := api.New("http://"+ln.Addr().String(), time.Second)
	login, err := c.Login(context.Background(), api.Credentials{Username: "candidate1", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "candidate", login.Role)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("twin did not shut down")
	}
}

func TestUsersFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials["admin"] = api.Credentials{Username: "root", Password: "toor"}

	users := usersFromConfig(cfg)
	assert.Equal(t, []twin.User{
		{Username: "root", Password: "toor", Role: "admin"},
		{Username: "candidate1", Password: "password123", Role: "candidate"},
		{Username: "recruiter1", Password: "password123", Role: "recruiter"},
	}, users)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "inner", errors.New("cause")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}
