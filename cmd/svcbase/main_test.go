package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/brendan.keane/svcbase/internal/errors"
	"github.com/brendan.keane/svcbase/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root, _ := newRootCmd(&stderr)
	root.SetOut(&stdout)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root, _ := newRootCmd(&bytes.Buffer{})

	for _, name := range []string{"post", "get", "download", "upload", "actions", "mcp", "completion"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}

	for _, flag := range []string{"base", "controller", "service", "config", "header", "param", "data", "select", "sig-v4", "openapi", "verbose", "debug"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestPostAndGet(t *testing.T) {
	srv := testutil.NewServiceTestServer("")
	defer srv.Close()
	base := srv.URL + "/api/"

	out, _, err := execute(t, "post", "create", "--base", base, "--controller", "orders", "-d", `{"qty":3}`, "--select", "echo.qty")
	testutil.AssertNoError(t, err, "post")
	testutil.AssertStringEqual(t, out, "3\n", "post output")

	out, _, err = execute(t, "get", "find", "--base", base, "--controller", "orders", "-p", "id=5", "--select", "status")
	testutil.AssertNoError(t, err, "get")
	testutil.AssertStringEqual(t, out, "open\n", "get output")

	_, _, err = execute(t, "post", "fail", "--base", base, "--controller", "orders")
	testutil.AssertErrorContains(t, err, "ServiceUnavailable", "rejected post")
	if msg := errors.UserMessage(err); !strings.Contains(msg, "503") {
		t.Errorf("user message should carry the status: %q", msg)
	}
}

func TestVerboseLogging(t *testing.T) {
	srv := testutil.NewServiceTestServer("")
	defer srv.Close()

	_, logs, err := execute(t, "download", "export", "-v", "--log-format", "json", "--base", srv.URL+"/api/", "--controller", "orders")
	testutil.AssertNoError(t, err, "download")
	testutil.AssertStringContains(t, logs, `"app":"svcbase"`, "json logs")
	testutil.AssertStringContains(t, logs, "X-Export : orders v2", "response headers")

	_, logs, err = execute(t, "download", "export", "--base", srv.URL+"/api/", "--controller", "orders")
	testutil.AssertNoError(t, err, "download")
	if strings.Contains(logs, "INF") || strings.Contains(logs, "DBG") {
		t.Errorf("default level is warn, got:\n%s", logs)
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := [][]string{
		{"post"},
		{"get", "a", "b"},
		{"upload", "https://x.example.com/upload"},
		{"mcp", "extra"},
		{"completion", "tcsh"},
	}
	for _, args := range tests {
		if _, _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected argument error", args)
		}
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, _, err := execute(t, "completion", shell)
		testutil.AssertNoError(t, err, shell)
		testutil.AssertStringContains(t, out, "svcbase", shell+" script")
	}
}

func TestActionCompletionFromOpenAPI(t *testing.T) {
	srv := testutil.NewServiceTestServer(testutil.OrdersAPISpec)
	defer srv.Close()

	out, _, err := execute(t, "__complete", "post", "--controller", "orders", "--openapi", srv.URL+"/openapi.json", "")
	testutil.AssertNoError(t, err, "complete")
	testutil.AssertStringContains(t, out, "create\nsearch\n", "post completions")
}
