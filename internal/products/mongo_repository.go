package products

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

type mongoRepository struct {
	products   *mongo.Collection
	categories *mongo.Collection
}

// NewMongoRepository returns the catalog repository for the document backend.
func NewMongoRepository(client *mongopkg.Client) Repository {
	return &mongoRepository{
		products:   client.Collection(mongopkg.CollectionProducts),
		categories: client.Collection(mongopkg.CollectionCategories),
	}
}

var byName = bson.D{{Key: "name", Value: 1}}

func (r *mongoRepository) findProducts(ctx context.Context, filter bson.M, limit int) ([]models.Product, error) {
	opts := options.Find().SetSort(byName).SetLimit(int64(limit))
	cursor, err := r.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.Product
	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, cursor.Err()
}

func (r *mongoRepository) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	return r.findProducts(ctx, bson.M{"is_featured": true}, limit)
}

func (r *mongoRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.Product, error) {
	return r.findProducts(ctx, bson.M{"category_id": categoryID}, limit)
}

func (r *mongoRepository) List(ctx context.Context, limit int) ([]models.Product, error) {
	return r.findProducts(ctx, bson.M{}, limit)
}

func (r *mongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, repo.Translate(err)
	}
	return &p, nil
}

func (r *mongoRepository) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.categories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.Category
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
