package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/hpungsan/reqtab/internal/config"
	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/ops"
	"github.com/hpungsan/reqtab/internal/request"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// setupTestSession creates a session backed by a temporary database.
func setupTestSession(t *testing.T) (*session, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.MaxTabs = 3

	s := &session{
		db:  database,
		cfg: cfg,
		tabs: tabs.New(tabs.Options{
			Capacity: cfg.MaxTabs,
			Store:    db.NewKVStore(database),
			Debounce: -1,
		}),
		exec: executor.New(executor.Options{}),
	}
	cleanup := func() {
		database.Close()
	}
	return s, cleanup
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, s *session, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := newCLIApp(s).Run(append([]string{"reqtab"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// mustRunCLI is runCLI that fails the test on error and decodes the output into v.
func mustRunCLI(t *testing.T, s *session, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, s, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
}

// tabView is the subset of tab JSON the tests look at.
type tabView struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Draft             request.Draft `json:"draft"`
	HasUnsavedChanges bool          `json:"has_unsaved_changes"`
}

// TestParseHeaders tests the parseHeaders helper function.
func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name        string
		input       []string
		expected    map[string]string
		expectError bool
	}{
		{
			name:     "empty",
			input:    nil,
			expected: map[string]string{},
		},
		{
			name:     "single header",
			input:    []string{"Accept: application/json"},
			expected: map[string]string{"Accept": "application/json"},
		},
		{
			name:     "value containing colon",
			input:    []string{"X-Time: 12:30"},
			expected: map[string]string{"X-Time": "12:30"},
		},
		{
			name:     "empty value",
			input:    []string{"X-Empty:"},
			expected: map[string]string{"X-Empty": ""},
		},
		{
			name:        "missing colon",
			input:       []string{"Accept"},
			expectError: true,
		},
		{
			name:        "missing name",
			input:       []string{": value"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseHeaders(tt.input)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d headers, got %d", len(tt.expected), len(result))
			}
			for k, v := range tt.expected {
				if result[k] != v {
					t.Errorf("expected %s=%q, got %q", k, v, result[k])
				}
			}
		})
	}
}

// TestParseSwitchTarget tests the parseSwitchTarget helper function.
func TestParseSwitchTarget(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    ops.SwitchTabInput
		expectError bool
	}{
		{name: "position", input: "2", expected: ops.SwitchTabInput{Position: 2}},
		{name: "last", input: "last", expected: ops.SwitchTabInput{Position: -1}},
		{name: "tab id", input: "01HZX", expected: ops.SwitchTabInput{TabID: "01HZX"}},
		{name: "zero position", input: "0", expectError: true},
		{name: "negative position", input: "-1", expectError: true},
		{name: "empty", input: " ", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseSwitchTarget(tt.input)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, result)
			}
		})
	}
}

// TestCLITabWorkflow tests opening, editing, saving and listing tabs.
func TestCLITabWorkflow(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	var created request.Record
	mustRunCLI(t, s, &created, "request", "create",
		"--name=Get users", "--url=https://api.example.com/users", "-H", "Accept: application/json")
	if created.ID == "" {
		t.Fatal("expected non-empty request ID")
	}
	if created.TimeoutMs != s.cfg.DefaultTimeoutMs {
		t.Errorf("expected timeout_ms=%d, got %d", s.cfg.DefaultTimeoutMs, created.TimeoutMs)
	}

	var opened ops.OpenRequestOutput
	mustRunCLI(t, s, &opened, "open", created.ID)
	if opened.Reused {
		t.Error("expected a new tab")
	}

	var again ops.OpenRequestOutput
	mustRunCLI(t, s, &again, "open", created.ID)
	if !again.Reused || again.TabID != opened.TabID {
		t.Errorf("expected reuse of %s, got %+v", opened.TabID, again)
	}

	// edit defaults to the active tab
	var edited tabView
	mustRunCLI(t, s, &edited, "edit", "-X", "post", "--timeout=5s", "--body", `{"a":1}`)
	if edited.ID != opened.TabID {
		t.Errorf("expected active tab %s edited, got %s", opened.TabID, edited.ID)
	}
	if edited.Draft.Method != "POST" {
		t.Errorf("expected method=POST, got %s", edited.Draft.Method)
	}
	if edited.Draft.TimeoutMs != 5000 {
		t.Errorf("expected timeout_ms=5000, got %d", edited.Draft.TimeoutMs)
	}
	if !edited.HasUnsavedChanges {
		t.Error("expected unsaved changes after edit")
	}

	var list ops.ListTabsOutput
	mustRunCLI(t, s, &list, "tabs")
	if list.Count != 1 || list.Unsaved != 1 {
		t.Errorf("expected 1 tab with 1 unsaved, got count=%d unsaved=%d", list.Count, list.Unsaved)
	}

	var saved ops.SaveTabOutput
	mustRunCLI(t, s, &saved, "save")
	if saved.Created || saved.RequestID != created.ID {
		t.Errorf("expected overwrite of %s, got %+v", created.ID, saved)
	}

	var fetched request.Record
	mustRunCLI(t, s, &fetched, "request", "show", created.ID)
	if fetched.Method != "POST" || fetched.Body != `{"a":1}` {
		t.Errorf("expected saved POST with body, got %s %q", fetched.Method, fetched.Body)
	}
}

// TestCLIEditBodyFromStdin tests that --body @- reads the body from stdin.
func TestCLIEditBodyFromStdin(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	mustRunCLI(t, s, nil, "new")

	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	go func() {
		_, _ = stdinW.WriteString("{\"from\":\"stdin\"}\n")
		stdinW.Close()
	}()

	var edited tabView
	mustRunCLI(t, s, &edited, "edit", "--body", "@-")
	os.Stdin = oldStdin

	if edited.Draft.Body != `{"from":"stdin"}` {
		t.Errorf("expected body from stdin, got %q", edited.Draft.Body)
	}
}

// TestCLINavigation tests switch, next, prev, move and pin.
func TestCLINavigation(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		var out ops.ActiveOutput
		mustRunCLI(t, s, &out, "new")
		ids = append(ids, out.TabID)
	}

	var out ops.ActiveOutput
	mustRunCLI(t, s, &out, "switch", "1")
	if *out.ActiveTabID != ids[0] {
		t.Errorf("expected first tab active, got %s", *out.ActiveTabID)
	}

	mustRunCLI(t, s, &out, "prev")
	if *out.ActiveTabID != ids[2] {
		t.Errorf("expected prev to wrap to last tab, got %s", *out.ActiveTabID)
	}

	mustRunCLI(t, s, &out, "next")
	if *out.ActiveTabID != ids[0] {
		t.Errorf("expected next to wrap to first tab, got %s", *out.ActiveTabID)
	}

	mustRunCLI(t, s, &out, "switch", "last")
	if *out.ActiveTabID != ids[2] {
		t.Errorf("expected last tab active, got %s", *out.ActiveTabID)
	}

	var moved ops.ListTabsOutput
	mustRunCLI(t, s, &moved, "move", "3", "1")
	if moved.Tabs[0].ID != ids[2] {
		t.Errorf("expected %s first after move, got %s", ids[2], moved.Tabs[0].ID)
	}

	var pinned ops.PinTabOutput
	mustRunCLI(t, s, &pinned, "pin", ids[1])
	if !pinned.IsPinned {
		t.Error("expected tab pinned")
	}

	var closed ops.CloseTabsOutput
	mustRunCLI(t, s, &closed, "close-unpinned", "--force")
	if closed.Closed != 2 {
		t.Errorf("expected 2 closed, got %d", closed.Closed)
	}
	if s.tabs.Len() != 1 {
		t.Errorf("expected 1 tab left, got %d", s.tabs.Len())
	}
}

// TestCLIRun tests sending the active tab's request.
func TestCLIRun(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	defer srv.Close()

	mustRunCLI(t, s, nil, "new")
	mustRunCLI(t, s, nil, "edit", "--url", srv.URL, "-X", "PUT")

	var out ops.RunTabOutput
	mustRunCLI(t, s, &out, "run")
	if out.Response == nil {
		t.Fatalf("expected a response, got failure %+v", out.Failure)
	}
	if out.Response.StatusCode != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", out.Response.StatusCode)
	}
	if out.Response.Body != "queued" {
		t.Errorf("expected body=queued, got %q", out.Response.Body)
	}
}

// TestCLISession tests session save and clear.
func TestCLISession(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	mustRunCLI(t, s, nil, "new")

	var saved map[string]any
	mustRunCLI(t, s, &saved, "session", "save")
	if saved["saved"] != true {
		t.Errorf("expected saved=true, got %v", saved["saved"])
	}

	restored := tabs.New(tabs.Options{Capacity: 3, Store: db.NewKVStore(s.db), Debounce: -1})
	if n := restored.RestoreSession(t.Context()); n != 1 {
		t.Errorf("expected 1 tab restored, got %d", n)
	}

	var cleared map[string]any
	mustRunCLI(t, s, &cleared, "session", "clear")
	if cleared["cleared"] != true {
		t.Errorf("expected cleared=true, got %v", cleared["cleared"])
	}

	empty := tabs.New(tabs.Options{Capacity: 3, Store: db.NewKVStore(s.db), Debounce: -1})
	if n := empty.RestoreSession(t.Context()); n != 0 {
		t.Errorf("expected nothing to restore after clear, got %d", n)
	}
}

// TestCLICollections tests collection create and list.
func TestCLICollections(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	var col request.Collection
	mustRunCLI(t, s, &col, "collection", "create", "--description=Billing endpoints", "Billing", "API")
	if col.Name != "Billing API" {
		t.Errorf("expected name=Billing API, got %q", col.Name)
	}

	var list ops.ListCollectionsOutput
	mustRunCLI(t, s, &list, "collection", "list")
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(list.Items))
	}

	if _, err := runCLI(t, s, "collection", "create", "billing api"); err == nil {
		t.Error("expected error for duplicate collection name")
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	s, cleanup := setupTestSession(t)
	defer cleanup()

	t.Run("show with no tabs returns error", func(t *testing.T) {
		// cli.Exit writes to stderr, so just verify the error is returned
		if _, err := runCLI(t, s, "show"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("open unknown request returns error", func(t *testing.T) {
		if _, err := runCLI(t, s, "open", "nonexistent"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("invalid header returns error", func(t *testing.T) {
		mustRunCLI(t, s, nil, "new")
		if _, err := runCLI(t, s, "edit", "-H", "no-colon"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("move with bad positions returns error", func(t *testing.T) {
		if _, err := runCLI(t, s, "move", "one", "two"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("close unsaved without force returns error", func(t *testing.T) {
		mustRunCLI(t, s, nil, "edit", "--url", "https://example.com")
		if _, err := runCLI(t, s, "close"); err == nil {
			t.Error("expected error, got nil")
		}
		mustRunCLI(t, s, nil, "close", "--force")
	})

	t.Run("error message carries code", func(t *testing.T) {
		_, err := runCLI(t, s, "request", "show", "nonexistent")
		if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
			t.Errorf("expected [NOT_FOUND] error, got %v", err)
		}
	})
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"reqtab"}, expected: false},
		{name: "tabs command", args: []string{"reqtab", "tabs"}, expected: true},
		{name: "close-others command", args: []string{"reqtab", "close-others"}, expected: true},
		{name: "request command", args: []string{"reqtab", "request"}, expected: true},
		{name: "help flag", args: []string{"reqtab", "--help"}, expected: true},
		{name: "version flag", args: []string{"reqtab", "--version"}, expected: true},
		{name: "short help flag", args: []string{"reqtab", "-h"}, expected: true},
		{name: "short version flag", args: []string{"reqtab", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"reqtab", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"reqtab"}, expected: false},
		{name: "help flag", args: []string{"reqtab", "--help"}, expected: true},
		{name: "short help flag", args: []string{"reqtab", "-h"}, expected: true},
		{name: "version flag", args: []string{"reqtab", "--version"}, expected: true},
		{name: "short version flag", args: []string{"reqtab", "-v"}, expected: true},
		{name: "help subcommand", args: []string{"reqtab", "help"}, expected: true},
		{name: "tabs command is not help", args: []string{"reqtab", "tabs"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		content := "small content"
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()

		oldStdin := os.Stdin
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()

		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != content {
			t.Errorf("expected %q, got %q", content, result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		content := strings.Repeat("x", 100)
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()

		oldStdin := os.Stdin
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()

		// Limit is 50 bytes, content is 100
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
