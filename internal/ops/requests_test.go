package ops

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/request"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateRequest_Defaults(t *testing.T) {
	database := newTestDB(t)

	rec, err := CreateRequest(context.Background(), database, CreateRequestInput{
		Name:    "  List   users ",
		Method:  "get",
		URL:     " https://api.example.com/users ",
		Headers: map[string]string{" Accept ": "application/json", " ": "dropped"},
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("ID should not be empty")
	}
	if rec.Name != "List users" {
		t.Errorf("Name = %q, want %q", rec.Name, "List users")
	}
	if rec.Method != "GET" {
		t.Errorf("Method = %q, want GET", rec.Method)
	}
	if rec.URL != "https://api.example.com/users" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.TimeoutMs != request.DefaultTimeoutMs {
		t.Errorf("TimeoutMs = %d, want %d", rec.TimeoutMs, request.DefaultTimeoutMs)
	}
	if !rec.FollowRedirects {
		t.Error("FollowRedirects should default to true")
	}
	if len(rec.Headers) != 1 || rec.Headers["Accept"] != "application/json" {
		t.Errorf("Headers = %v", rec.Headers)
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	database := newTestDB(t)

	tests := []struct {
		name  string
		input CreateRequestInput
		code  errors.ErrorCode
	}{
		{"missing name", CreateRequestInput{URL: "https://x.test"}, errors.ErrInvalidRequest},
		{"missing url", CreateRequestInput{Name: "x"}, errors.ErrInvalidRequest},
		{"bad method", CreateRequestInput{Name: "x", URL: "https://x.test", Method: "BREW"}, errors.ErrInvalidRequest},
		{"negative timeout", CreateRequestInput{Name: "x", URL: "https://x.test", TimeoutMs: -1}, errors.ErrInvalidRequest},
		{"unknown collection", CreateRequestInput{Name: "x", URL: "https://x.test", CollectionID: "nope"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateRequest(context.Background(), database, tt.input)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFetchRequest(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	rec, err := CreateRequest(ctx, database, CreateRequestInput{Name: "Ping", URL: "https://x.test/ping"})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	got, err := FetchRequest(ctx, database, FetchRequestInput{ID: rec.ID})
	if err != nil {
		t.Fatalf("FetchRequest failed: %v", err)
	}
	if got.Name != "Ping" {
		t.Errorf("Name = %q, want Ping", got.Name)
	}

	if _, err := FetchRequest(ctx, database, FetchRequestInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty id should be INVALID_REQUEST, got: %v", err)
	}
	if _, err := FetchRequest(ctx, database, FetchRequestInput{ID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing id should be NOT_FOUND, got: %v", err)
	}
}

func TestUpdateRequest(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	col, err := CreateCollection(ctx, database, CreateCollectionInput{Name: "Users"})
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	rec, err := CreateRequest(ctx, database, CreateRequestInput{
		Name:    "Ping",
		URL:     "https://x.test/ping",
		Headers: map[string]string{"X-Old": "1"},
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	updated, err := UpdateRequest(ctx, database, UpdateRequestInput{
		ID:           rec.ID,
		CollectionID: &col.ID,
		Method:       ptr("post"),
		Body:         ptr(`{}`),
		Headers:      map[string]string{},
		TimeoutMs:    ptr(0),
	})
	if err != nil {
		t.Fatalf("UpdateRequest failed: %v", err)
	}
	if updated.Method != "POST" || updated.Body != "{}" || updated.CollectionID != col.ID {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.Name != "Ping" {
		t.Errorf("Name changed to %q", updated.Name)
	}
	if updated.TimeoutMs != request.DefaultTimeoutMs {
		t.Errorf("TimeoutMs = %d", updated.TimeoutMs)
	}

	got, _ := FetchRequest(ctx, database, FetchRequestInput{ID: rec.ID})
	if len(got.Headers) != 0 {
		t.Errorf("headers should be cleared, got %v", got.Headers)
	}

	if _, err := UpdateRequest(ctx, database, UpdateRequestInput{ID: rec.ID}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty update should be INVALID_REQUEST, got: %v", err)
	}
	if _, err := UpdateRequest(ctx, database, UpdateRequestInput{ID: rec.ID, Name: ptr(" ")}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank name should be INVALID_REQUEST, got: %v", err)
	}
	if _, err := UpdateRequest(ctx, database, UpdateRequestInput{ID: "missing", Name: ptr("x")}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing id should be NOT_FOUND, got: %v", err)
	}
}

func TestListRequests_Pagination(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := CreateRequest(ctx, database, CreateRequestInput{Name: name, URL: "https://x.test/" + name}); err != nil {
			t.Fatalf("CreateRequest failed: %v", err)
		}
	}

	out, err := ListRequests(ctx, database, ListRequestsInput{Limit: 2})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(out.Items) != 2 || !out.Pagination.HasMore || out.Pagination.Total != 3 {
		t.Errorf("page 1 = %d items, pagination %+v", len(out.Items), out.Pagination)
	}

	out, err = ListRequests(ctx, database, ListRequestsInput{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(out.Items) != 1 || out.Pagination.HasMore {
		t.Errorf("page 2 = %d items, pagination %+v", len(out.Items), out.Pagination)
	}

	out, err = ListRequests(ctx, database, ListRequestsInput{Limit: 1000, Offset: -5, NamePrefix: "zzz"})
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil slice", out.Items)
	}
	if out.Pagination.Limit != MaxListLimit || out.Pagination.Offset != 0 {
		t.Errorf("pagination = %+v", out.Pagination)
	}
}

func TestDeleteRequest(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	rec, err := CreateRequest(ctx, database, CreateRequestInput{Name: "Ping", URL: "https://x.test/ping"})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	out, err := DeleteRequest(ctx, database, DeleteRequestInput{ID: rec.ID})
	if err != nil {
		t.Fatalf("DeleteRequest failed: %v", err)
	}
	if !out.Deleted || out.ID != rec.ID {
		t.Errorf("DeleteRequest = %+v", out)
	}

	if _, err := FetchRequest(ctx, database, FetchRequestInput{ID: rec.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("deleted request should be NOT_FOUND, got: %v", err)
	}
	if _, err := FetchRequest(ctx, database, FetchRequestInput{ID: rec.ID, IncludeDeleted: true}); err != nil {
		t.Errorf("include_deleted fetch failed: %v", err)
	}
	if _, err := DeleteRequest(ctx, database, DeleteRequestInput{ID: rec.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete should be NOT_FOUND, got: %v", err)
	}
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	col, err := CreateCollection(ctx, database, CreateCollectionInput{Name: "Billing", Description: ptr("  invoices ")})
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	if col.Description != "invoices" {
		t.Errorf("Description = %q", col.Description)
	}

	if _, err := CreateCollection(ctx, database, CreateCollectionInput{Name: "billing"}); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("duplicate name should be CONFLICT, got: %v", err)
	}
	if _, err := CreateCollection(ctx, database, CreateCollectionInput{Name: " "}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank name should be INVALID_REQUEST, got: %v", err)
	}

	if _, err := CreateRequest(ctx, database, CreateRequestInput{Name: "Invoice", URL: "https://x.test", CollectionID: col.ID}); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	out, err := ListCollections(ctx, database)
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].RequestCount != 1 || out.Items[0].Name != "Billing" {
		t.Errorf("ListCollections = %+v", out.Items)
	}
}
