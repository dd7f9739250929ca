package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/spec-kit/area-service/internal/domain"
)

type areaDocument struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	Name          string    `bson:"name"`
	Category      int       `bson:"category"`
	Location      string    `bson:"location"`
	LocationPoint []float64 `bson:"location_point"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func newAreaDocument(a *domain.Area) areaDocument {
	return areaDocument{
		ID:            a.ID,
		OwnerID:       a.OwnerID,
		Name:          a.Name,
		Category:      int(a.Category),
		Location:      a.Location,
		LocationPoint: locationPoint(a),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (d areaDocument) toDomain() domain.Area {
	return domain.Area{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		Name:          d.Name,
		Category:      domain.AreaCategory(d.Category),
		Location:      d.Location,
		LocationPoint: d.LocationPoint,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type mongoAreaRepository struct {
	coll *mongo.Collection
}

// NewMongoAreaRepository returns a MongoDB-backed implementation.
func NewMongoAreaRepository(coll *mongo.Collection) AreaRepository {
	return &mongoAreaRepository{coll: coll}
}

func ownedBy(id, ownerID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "owner_id", Value: ownerID}}
}

func (r *mongoAreaRepository) Create(ctx context.Context, area *domain.Area) error {
	_, err := r.coll.InsertOne(ctx, newAreaDocument(area))
	return mapMongoError(err)
}

func (r *mongoAreaRepository) Update(ctx context.Context, area *domain.Area) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: area.Name},
		{Key: "category", Value: int(area.Category)},
		{Key: "location", Value: area.Location},
		{Key: "location_point", Value: locationPoint(area)},
		{Key: "updated_at", Value: area.UpdatedAt},
	}}}

	res, err := r.coll.UpdateOne(ctx, ownedBy(area.ID, area.OwnerID), update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAreaRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(id, ownerID))
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAreaRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Area, error) {
	var doc areaDocument
	if err := r.coll.FindOne(ctx, ownedBy(id, ownerID)).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	area := doc.toDomain()
	return &area, nil
}

func (r *mongoAreaRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Area, int64, error) {
	filter := bson.D{{Key: "owner_id", Value: ownerID}}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapMongoError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mapMongoError(err)
	}

	var docs []areaDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	areas := make([]domain.Area, 0, len(docs))
	for _, doc := range docs {
		areas = append(areas, doc.toDomain())
	}
	return areas, total, nil
}
