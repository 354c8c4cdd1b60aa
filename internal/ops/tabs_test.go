package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/request"
	"github.com/hpungsan/reqtab/internal/tabs"
)

func TestListTabs(t *testing.T) {
	m := tabs.New(tabs.Options{Capacity: 4})
	a := m.OpenBlankTab(true)
	b := m.OpenBlankTab(true)
	_, err := EditTab(m, EditTabInput{TabID: a, Name: ptr("A rather long tab name"), URL: ptr("https://x.test")})
	require.NoError(t, err)
	m.TogglePin(b)

	out := ListTabs(m, 8)
	require.Equal(t, 2, out.Count)
	require.Equal(t, 4, out.Capacity)
	require.Equal(t, 1, out.Unsaved)
	require.NotNil(t, out.ActiveTabID)
	assert.Equal(t, b, *out.ActiveTabID)

	assert.Equal(t, 1, out.Tabs[0].Position)
	assert.Equal(t, "A rathe…", out.Tabs[0].Name)
	assert.True(t, out.Tabs[0].HasUnsavedChanges)
	assert.True(t, out.Tabs[1].IsPinned)
	assert.True(t, out.Tabs[1].IsActive)

	empty := ListTabs(tabs.New(tabs.Options{}), 0)
	assert.Nil(t, empty.ActiveTabID)
	assert.NotNil(t, empty.Tabs)
}

func TestCloseTab_RefusesUnsavedWithoutForce(t *testing.T) {
	m := tabs.New(tabs.Options{})
	id := m.OpenBlankTab(true)
	m.MarkUnsaved(id)

	_, err := CloseTab(m, CloseTabInput{TabID: id})
	require.True(t, errors.Is(err, errors.ErrUnsavedChanges))
	require.Equal(t, 1, m.Len())

	out, err := CloseTab(m, CloseTabInput{TabID: id, Force: true})
	require.NoError(t, err)
	require.Nil(t, out.ActiveTabID)
	require.Zero(t, m.Len())

	_, err = CloseTab(m, CloseTabInput{TabID: id})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = CloseTab(m, CloseTabInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestCloseTabs(t *testing.T) {
	tests := []struct {
		name       string
		input      func(ids []string) CloseTabsInput
		wantClosed int
		wantErr    errors.ErrorCode
	}{
		{
			name:    "all refuses unsaved",
			input:   func([]string) CloseTabsInput { return CloseTabsInput{Mode: CloseModeAll} },
			wantErr: errors.ErrUnsavedChanges,
		},
		{
			name:       "all forced",
			input:      func([]string) CloseTabsInput { return CloseTabsInput{Mode: CloseModeAll, Force: true} },
			wantClosed: 3,
		},
		{
			name: "others keeping the unsaved tab",
			input: func(ids []string) CloseTabsInput {
				return CloseTabsInput{Mode: CloseModeOthers, KeepID: ids[1]}
			},
			wantClosed: 2,
		},
		{
			name: "others unknown keep",
			input: func([]string) CloseTabsInput {
				return CloseTabsInput{Mode: CloseModeOthers, KeepID: "nope"}
			},
			wantErr: errors.ErrNotFound,
		},
		{
			name: "unpinned refuses unsaved",
			input: func([]string) CloseTabsInput {
				return CloseTabsInput{Mode: CloseModeUnpinned}
			},
			wantErr: errors.ErrUnsavedChanges,
		},
		{
			name:    "unknown mode",
			input:   func([]string) CloseTabsInput { return CloseTabsInput{Mode: "some"} },
			wantErr: errors.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tabs.New(tabs.Options{})
			ids := []string{m.OpenBlankTab(true), m.OpenBlankTab(true), m.OpenBlankTab(true)}
			m.MarkUnsaved(ids[1])
			m.TogglePin(ids[0])

			out, err := CloseTabs(m, tt.input(ids))
			if tt.wantErr != "" {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				require.Equal(t, 3, m.Len())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantClosed, out.Closed)
			require.Equal(t, 3-tt.wantClosed, m.Len())
		})
	}
}

func TestSwitchTab(t *testing.T) {
	m := tabs.New(tabs.Options{})
	a := m.OpenBlankTab(true)
	b := m.OpenBlankTab(true)
	c := m.OpenBlankTab(true)

	out, err := SwitchTab(m, SwitchTabInput{TabID: a})
	require.NoError(t, err)
	require.Equal(t, a, *out.ActiveTabID)

	out, err = SwitchTab(m, SwitchTabInput{Position: 2})
	require.NoError(t, err)
	require.Equal(t, b, *out.ActiveTabID)

	out, err = SwitchTab(m, SwitchTabInput{Position: -1})
	require.NoError(t, err)
	require.Equal(t, c, *out.ActiveTabID)

	_, err = SwitchTab(m, SwitchTabInput{Position: 9})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = SwitchTab(m, SwitchTabInput{TabID: a, Position: 1})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = SwitchTab(m, SwitchTabInput{TabID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = SwitchTab(m, SwitchTabInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestCycleTab(t *testing.T) {
	m := tabs.New(tabs.Options{})
	_, err := CycleTab(m, false)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	a := m.OpenBlankTab(true)
	b := m.OpenBlankTab(true)

	out, err := CycleTab(m, false)
	require.NoError(t, err)
	require.Equal(t, a, *out.ActiveTabID)

	out, err = CycleTab(m, true)
	require.NoError(t, err)
	require.Equal(t, b, *out.ActiveTabID)
}

func TestDuplicateAndPinTab(t *testing.T) {
	m := tabs.New(tabs.Options{})
	a := m.OpenBlankTab(true)

	dup, err := DuplicateTab(m, a)
	require.NoError(t, err)
	require.NotEqual(t, a, dup.TabID)
	require.Equal(t, a, *dup.ActiveTabID)

	_, err = DuplicateTab(m, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))

	full := tabs.New(tabs.Options{Capacity: 1})
	_, err = DuplicateTab(full, full.OpenBlankTab(true))
	require.True(t, errors.Is(err, errors.ErrCapacityExhausted))

	pin, err := PinTab(m, a)
	require.NoError(t, err)
	require.True(t, pin.IsPinned)
	pin, err = PinTab(m, a)
	require.NoError(t, err)
	require.False(t, pin.IsPinned)

	_, err = PinTab(m, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMoveTab(t *testing.T) {
	m := tabs.New(tabs.Options{})
	a := m.OpenBlankTab(true)
	b := m.OpenBlankTab(true)

	out, err := MoveTab(m, MoveTabInput{From: 1, To: 0})
	require.NoError(t, err)
	require.Equal(t, b, out.Tabs[0].ID)
	require.Equal(t, a, out.Tabs[1].ID)

	_, err = MoveTab(m, MoveTabInput{From: 0, To: 2})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEditTab(t *testing.T) {
	m := tabs.New(tabs.Options{})
	id := m.OpenBlankTab(true)

	tab, err := EditTab(m, EditTabInput{
		TabID:   id,
		Method:  ptr("post"),
		URL:     ptr(" https://x.test/items "),
		Headers: map[string]string{" Accept ": "application/json", "": "dropped"},
		Body:    ptr(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", tab.Draft.Method)
	assert.Equal(t, "https://x.test/items", tab.Draft.URL)
	assert.Equal(t, map[string]string{"Accept": "application/json"}, tab.Draft.Headers)
	assert.True(t, tab.HasUnsavedChanges)

	tab, err = EditTab(m, EditTabInput{TabID: id, Name: ptr("  Create item ")})
	require.NoError(t, err)
	assert.Equal(t, "Create item", tab.Name)

	cases := []EditTabInput{
		{TabID: id},
		{TabID: id, Method: ptr("FETCH")},
		{TabID: id, TimeoutMs: ptr(-1)},
		{TabID: id, Name: ptr("   ")},
	}
	for _, in := range cases {
		_, err := EditTab(m, in)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "input %+v: %v", in, err)
	}

	_, err = EditTab(m, EditTabInput{TabID: "missing", Body: ptr("x")})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRunTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("made"))
	}))
	defer srv.Close()

	m := tabs.New(tabs.Options{})
	exec := executor.New(executor.Options{})
	id := m.OpenBlankTab(true)
	_, err := EditTab(m, EditTabInput{TabID: id, Method: ptr("POST"), URL: ptr(srv.URL)})
	require.NoError(t, err)

	out, err := RunTab(context.Background(), exec, m, id)
	require.NoError(t, err)
	require.Nil(t, out.Failure)
	require.NotNil(t, out.Response)
	require.Equal(t, http.StatusCreated, out.Response.StatusCode)
	require.Equal(t, "made", out.Response.Body)

	tab, _ := m.Tab(id)
	require.False(t, tab.IsExecuting)
	require.IsType(t, &request.Response{}, tab.LastResult)

	// An invalid URL is reported as a failure, not an error.
	bad := m.OpenBlankTab(true)
	out, err = RunTab(context.Background(), exec, m, bad)
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	require.Equal(t, request.FailureInvalid, out.Failure.Kind)

	_, err = RunTab(context.Background(), exec, m, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
