package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

type mongoRepository struct {
	lines *mongo.Collection
}

// NewMongoRepository returns the cart repository for the document backend.
func NewMongoRepository(client *mongopkg.Client) Repository {
	return &mongoRepository{lines: client.Collection(mongopkg.CollectionCartLines)}
}

func lineFilter(owner string, productID uuid.UUID) bson.M {
	return bson.M{"owner_id": owner, "product_id": productID}
}

func (r *mongoRepository) ListByOwner(ctx context.Context, owner string) ([]models.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.lines.Find(ctx, bson.M{"owner_id": owner}, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.CartLine
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoRepository) Increment(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	now := time.Now().UTC()
	return r.upsert(ctx, owner, productID, bson.M{
		"$inc":         bson.M{"quantity": qty},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": insertFields(owner, productID, now),
	})
}

func (r *mongoRepository) SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	now := time.Now().UTC()
	return r.upsert(ctx, owner, productID, bson.M{
		"$set":         bson.M{"quantity": qty, "updated_at": now},
		"$setOnInsert": insertFields(owner, productID, now),
	})
}

func insertFields(owner string, productID uuid.UUID, now time.Time) bson.M {
	return bson.M{
		"_id":        uuid.New(),
		"owner_id":   owner,
		"product_id": productID,
		"created_at": now,
	}
}

// upsert retries once when two upserts race on the unique (owner_id, product_id)
// index; the retry matches the winner's document and updates it.
func (r *mongoRepository) upsert(ctx context.Context, owner string, productID uuid.UUID, update bson.M) error {
	opts := options.UpdateOne().SetUpsert(true)
	_, err := r.lines.UpdateOne(ctx, lineFilter(owner, productID), update, opts)
	if err = repo.Translate(err); errors.Is(err, repo.ErrDuplicate) {
		_, err = r.lines.UpdateOne(ctx, lineFilter(owner, productID), update, opts)
	}
	return err
}

func (r *mongoRepository) Delete(ctx context.Context, owner string, productID uuid.UUID) error {
	_, err := r.lines.DeleteOne(ctx, lineFilter(owner, productID))
	return err
}

func (r *mongoRepository) DeleteAll(ctx context.Context, owner string) error {
	_, err := r.lines.DeleteMany(ctx, bson.M{"owner_id": owner})
	return err
}
