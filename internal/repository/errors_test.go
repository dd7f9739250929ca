package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/spec-kit/area-service/internal/domain"
)

func TestMapPgError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"other constraint", &pgconn.PgError{Code: "23503"}, nil},
		{"unrelated", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPgError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Same(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestMapMongoError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

	assert.NoError(t, mapMongoError(nil))
	assert.ErrorIs(t, mapMongoError(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, mapMongoError(dup), ErrConflict)

	other := errors.New("server selection timeout")
	assert.Equal(t, other, mapMongoError(other))
}

func TestAreaDocument_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	area := &domain.Area{
		ID:        "a-1",
		OwnerID:   "u-1",
		Name:      "Kitchen",
		Category:  domain.AreaCategoryHouse,
		Location:  "Home",
		CreatedAt: now,
		UpdatedAt: now,
	}

	doc := newAreaDocument(area)
	assert.Equal(t, 2, doc.Category)
	assert.Equal(t, []float64{}, doc.LocationPoint)

	back := doc.toDomain()
	assert.Equal(t, domain.AreaCategoryHouse, back.Category)
	assert.Equal(t, area.Name, back.Name)
	assert.True(t, now.Equal(back.UpdatedAt))
}
