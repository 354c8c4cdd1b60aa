package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/request"
)

// CreateRequestInput contains parameters for the CreateRequest operation.
type CreateRequestInput struct {
	CollectionID    string // optional; must exist when set
	Name            string // required
	Method          string // default: GET
	URL             string // required
	Headers         map[string]string
	Body            string
	TimeoutMs       int   // default: request.DefaultTimeoutMs
	FollowRedirects *bool // default: true
}

// CreateRequest persists a new request.
func CreateRequest(ctx context.Context, database *sql.DB, input CreateRequestInput) (*request.Record, error) {
	name := request.CleanName(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return nil, errors.NewInvalidRequest("url is required")
	}
	method, err := validateMethod(input.Method)
	if err != nil {
		return nil, err
	}
	if input.TimeoutMs < 0 {
		return nil, errors.NewInvalidRequest("timeout_ms must not be negative")
	}

	collectionID := strings.TrimSpace(input.CollectionID)
	if collectionID != "" {
		if _, err := db.GetCollection(ctx, database, collectionID); err != nil {
			return nil, err
		}
	}

	timeout := input.TimeoutMs
	if timeout == 0 {
		timeout = request.DefaultTimeoutMs
	}
	follow := true
	if input.FollowRedirects != nil {
		follow = *input.FollowRedirects
	}

	now := time.Now().Unix()
	r := &request.Record{
		ID:              request.NewID(),
		CollectionID:    collectionID,
		Name:            name,
		Method:          method,
		URL:             url,
		Headers:         cleanHeaders(input.Headers),
		Body:            input.Body,
		TimeoutMs:       timeout,
		FollowRedirects: follow,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.InsertRequest(ctx, database, r); err != nil {
		return nil, err
	}
	return r, nil
}

// FetchRequestInput contains parameters for the FetchRequest operation.
type FetchRequestInput struct {
	ID             string
	IncludeDeleted bool
}

// FetchRequest retrieves a request by id.
func FetchRequest(ctx context.Context, database *sql.DB, input FetchRequestInput) (*request.Record, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	return db.GetRequest(ctx, database, id, input.IncludeDeleted)
}

// ListRequestsInput contains parameters for the ListRequests operation.
type ListRequestsInput struct {
	CollectionID   string
	NamePrefix     string
	Limit          int // default: 20, max: 100
	Offset         int
	IncludeDeleted bool
}

// ListRequestsOutput contains the result of the ListRequests operation.
type ListRequestsOutput struct {
	Items      []request.Record `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// ListRequests returns saved requests, most recently updated first.
func ListRequests(ctx context.Context, database *sql.DB, input ListRequestsInput) (*ListRequestsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	items, total, err := db.ListRequests(ctx, database, db.RequestFilter{
		CollectionID:   strings.TrimSpace(input.CollectionID),
		NamePrefix:     strings.TrimSpace(input.NamePrefix),
		IncludeDeleted: input.IncludeDeleted,
	}, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []request.Record{}
	}

	return &ListRequestsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

// UpdateRequestInput contains parameters for the UpdateRequest operation.
// Nil fields are left unchanged; a non-nil Headers map replaces all headers.
type UpdateRequestInput struct {
	ID              string
	CollectionID    *string // empty string detaches from the collection
	Name            *string
	Method          *string
	URL             *string
	Headers         map[string]string
	Body            *string
	TimeoutMs       *int
	FollowRedirects *bool
}

// UpdateRequest modifies a saved request.
func UpdateRequest(ctx context.Context, database *sql.DB, input UpdateRequestInput) (*request.Record, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	if input.CollectionID == nil && input.Name == nil && input.Method == nil && input.URL == nil &&
		input.Headers == nil && input.Body == nil && input.TimeoutMs == nil && input.FollowRedirects == nil {
		return nil, errors.NewInvalidRequest("at least one field must be provided")
	}

	r, err := db.GetRequest(ctx, database, id, false)
	if err != nil {
		return nil, err
	}

	if input.CollectionID != nil {
		collectionID := strings.TrimSpace(*input.CollectionID)
		if collectionID != "" {
			if _, err := db.GetCollection(ctx, database, collectionID); err != nil {
				return nil, err
			}
		}
		r.CollectionID = collectionID
	}
	if input.Name != nil {
		name := request.CleanName(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidRequest("name must not be empty")
		}
		r.Name = name
	}
	if input.Method != nil {
		if r.Method, err = validateMethod(*input.Method); err != nil {
			return nil, err
		}
	}
	if input.URL != nil {
		url := strings.TrimSpace(*input.URL)
		if url == "" {
			return nil, errors.NewInvalidRequest("url must not be empty")
		}
		r.URL = url
	}
	if input.Headers != nil {
		r.Headers = cleanHeaders(input.Headers)
	}
	if input.Body != nil {
		r.Body = *input.Body
	}
	if input.TimeoutMs != nil {
		if *input.TimeoutMs < 0 {
			return nil, errors.NewInvalidRequest("timeout_ms must not be negative")
		}
		r.TimeoutMs = *input.TimeoutMs
		if r.TimeoutMs == 0 {
			r.TimeoutMs = request.DefaultTimeoutMs
		}
	}
	if input.FollowRedirects != nil {
		r.FollowRedirects = *input.FollowRedirects
	}

	if err := db.UpdateRequest(ctx, database, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRequestInput contains parameters for the DeleteRequest operation.
type DeleteRequestInput struct {
	ID string
}

// DeleteRequestOutput contains the result of the DeleteRequest operation.
type DeleteRequestOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteRequest soft-deletes a saved request. Tabs open on it keep their draft.
func DeleteRequest(ctx context.Context, database *sql.DB, input DeleteRequestInput) (*DeleteRequestOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	if err := db.SoftDeleteRequest(ctx, database, id); err != nil {
		return nil, err
	}
	return &DeleteRequestOutput{Deleted: true, ID: id}, nil
}
