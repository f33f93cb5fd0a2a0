package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/gridscout/internal/log"
)

type fakeRunner struct {
	inputs []string
	result *RunResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, input string) (*RunResult, error) {
	f.inputs = append(f.inputs, input)
	return f.result, f.err
}

func newTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>gridscout</h1>"), 0o644))
	return NewServer(Config{StaticDir: dir, Runner: runner, Logger: log.Discard()})
}

func post(t *testing.T, s *Server, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestExecuteSuccess(t *testing.T) {
	runner := &fakeRunner{result: &RunResult{Stdout: "Letter: D"}}
	s := newTestServer(t, runner)

	status, out := post(t, s, `{"input_value": "door"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"status": "success", "output": "Letter: D"}, out)
	assert.Equal(t, []string{"door"}, runner.inputs)
}

func TestExecuteNoInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing field", `{"other": "x"}`},
		{"blank value", `{"input_value": "  "}`},
		{"not json", `door`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := newTestServer(t, runner)

			status, out := post(t, s, tt.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, map[string]string{"status": "fail", "message": "No input provided"}, out)
			assert.Empty(t, runner.inputs)
		})
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	t.Run("with stderr", func(t *testing.T) {
		res := &RunResult{Stderr: "camera: cannot open device", ExitCode: 1}
		s := newTestServer(t, &fakeRunner{result: res, err: &ExitError{Result: res, Err: errors.New("exit status 1")}})

		status, out := post(t, s, `{"input_value": "door"}`)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "fail", out["status"])
		assert.Equal(t, "camera: cannot open device", out["message"])
	})

	t.Run("silent", func(t *testing.T) {
		res := &RunResult{ExitCode: 2}
		s := newTestServer(t, &fakeRunner{result: res, err: &ExitError{Result: res, Err: errors.New("exit status 2")}})

		status, out := post(t, s, `{"input_value": "door"}`)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "An error occurred.", out["message"])
	})
}

func TestExecuteOtherFailure(t *testing.T) {
	s := newTestServer(t, &fakeRunner{err: errors.New(`exec: "gridscout": executable file not found in $PATH`)})

	status, out := post(t, s, `{"input_value": "door"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, out["message"], "executable file not found")
}

func TestRunsHistory(t *testing.T) {
	s := newTestServer(t, &fakeRunner{result: &RunResult{Stdout: "Letter: A"}})
	post(t, s, `{"input_value": "cup"}`)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.NoError(t, err)

	var runs []Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "cup", runs[0].Input)
	assert.Equal(t, "success", runs[0].Status)
	assert.NotEmpty(t, runs[0].ID)
}

func TestStaticAndHealth(t *testing.T) {
	s := newTestServer(t, &fakeRunner{})

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gridscout")

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestExecRunner(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-gridscout")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
if [ "$3" = "fail" ]; then echo "boom" >&2; exit 3; fi
echo "  args: $*  "
`), 0o755))

	r := &ExecRunner{Command: script, Args: []string{"-once", "-find"}}

	res, err := r.Run(context.Background(), "coffee mug")
	require.NoError(t, err)
	assert.Equal(t, "args: -once -find coffee mug", res.Stdout)

	res, err = r.Run(context.Background(), "fail")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom", res.Stderr)

	_, err = (&ExecRunner{Command: filepath.Join(dir, "missing")}).Run(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.As(err, &exitErr))
}
