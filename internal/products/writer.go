package products

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

// Writer loads catalog data. Shoppers never reach it; cmd/seed does.
// Both upserts are keyed by id so rerunning a seed converges.
type Writer interface {
	UpsertCategory(ctx context.Context, c *models.Category) error
	UpsertProduct(ctx context.Context, p *models.Product) error
}

func NewWriter(db *gorm.DB) Writer {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) UpsertCategory(ctx context.Context, c *models.Category) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image_url", "sort_order", "updated_at"}),
	}).Create(c).Error
}

func (r *gormRepository) UpsertProduct(ctx context.Context, p *models.Product) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category_id", "sku", "name", "description", "unit", "price",
			"min_order_quantity", "stock_quantity", "specifications",
			"is_featured", "image_path", "image_url", "updated_at",
		}),
	}).Create(p).Error
}

func NewMongoWriter(client *mongopkg.Client) Writer {
	return &mongoRepository{
		products:   client.Collection(mongopkg.CollectionProducts),
		categories: client.Collection(mongopkg.CollectionCategories),
	}
}

func (r *mongoRepository) UpsertCategory(ctx context.Context, c *models.Category) error {
	stamp(&c.CreatedAt, &c.UpdatedAt)
	return replaceByID(ctx, r.categories, c.ID, c)
}

func (r *mongoRepository) UpsertProduct(ctx context.Context, p *models.Product) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	return replaceByID(ctx, r.products, p.ID, p)
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id any, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
