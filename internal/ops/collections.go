package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/request"
)

// CreateCollectionInput contains parameters for the CreateCollection operation.
type CreateCollectionInput struct {
	Name        string // required, unique case-insensitively
	Description *string
}

// CreateCollection persists a new collection.
func CreateCollection(ctx context.Context, database *sql.DB, input CreateCollectionInput) (*request.Collection, error) {
	name := request.CleanName(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}

	c := &request.Collection{
		ID:        request.NewID(),
		Name:      name,
		CreatedAt: time.Now().Unix(),
	}
	if desc := cleanOptionalString(input.Description); desc != nil {
		c.Description = *desc
	}

	if err := db.InsertCollection(ctx, database, c); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("collection already exists: " + name)
		}
		return nil, err
	}
	return c, nil
}

// CollectionSummary is a collection plus its number of live requests.
type CollectionSummary struct {
	request.Collection
	RequestCount int `json:"request_count"`
}

// ListCollectionsOutput contains the result of the ListCollections operation.
type ListCollectionsOutput struct {
	Items []CollectionSummary `json:"items"`
	Sort  string              `json:"sort"`
}

// ListCollections returns every collection ordered by name.
func ListCollections(ctx context.Context, database *sql.DB) (*ListCollectionsOutput, error) {
	cols, counts, err := db.ListCollections(ctx, database)
	if err != nil {
		return nil, err
	}
	items := make([]CollectionSummary, len(cols))
	for i, c := range cols {
		items[i] = CollectionSummary{Collection: c, RequestCount: counts[c.ID]}
	}
	return &ListCollectionsOutput{Items: items, Sort: "name_asc"}, nil
}
