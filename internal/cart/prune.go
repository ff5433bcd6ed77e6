package cart

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

// IdlePruner removes whole carts nobody has touched since a cutoff. A cart
// with one recent line is kept intact, old lines included.
type IdlePruner interface {
	DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error)
}

func NewIdlePruner(db *gorm.DB) IdlePruner {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error) {
	conn := r.DB(ctx)
	idle := conn.Model(&models.CartLine{}).
		Select("owner_id").
		Group("owner_id").
		Having("MAX(updated_at) < ?", before)
	res := conn.Where("owner_id IN (?)", idle).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

func NewMongoIdlePruner(client *mongopkg.Client) IdlePruner {
	return &mongoRepository{lines: client.Collection(mongopkg.CollectionCartLines)}
}

func (r *mongoRepository) DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error) {
	owners, err := idleOwners(ctx, r.lines, before)
	if err != nil || len(owners) == 0 {
		return 0, err
	}
	res, err := r.lines.DeleteMany(ctx, bson.M{"owner_id": bson.M{"$in": owners}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func idleOwners(ctx context.Context, lines *mongo.Collection, before time.Time) ([]string, error) {
	cursor, err := lines.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$owner_id", "last": bson.M{"$max": "$updated_at"}}}},
		{{Key: "$match", Value: bson.M{"last": bson.M{"$lt": before}}}},
	})
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Owner string `bson:"_id"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(groups))
	for _, g := range groups {
		owners = append(owners, g.Owner)
	}
	return owners, nil
}
