package orders

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
	"github.com/angelmondragon/conduit-storefront/pkg/textsearch"
)

type mongoRepository struct {
	orders *mongo.Collection
	lines  *mongo.Collection
}

// NewMongoRepository returns the orders repository for the document backend.
func NewMongoRepository(client *mongopkg.Client) Repository {
	return &mongoRepository{
		orders: client.Collection(mongopkg.CollectionOrders),
		lines:  client.Collection(mongopkg.CollectionOrderLines),
	}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	_, err := r.orders.InsertOne(ctx, order)
	return repo.Translate(err)
}

func (r *mongoRepository) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	docs := make([]any, 0, len(lines))
	for i := range lines {
		if lines[i].CreatedAt.IsZero() {
			lines[i].CreatedAt = time.Now().UTC()
		}
		docs = append(docs, lines[i])
	}
	_, err := r.lines.InsertMany(ctx, docs)
	return repo.Translate(err)
}

func (r *mongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, repo.Translate(err)
	}
	return &order, nil
}

func (r *mongoRepository) FindLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "product_name", Value: 1}})
	cursor, err := r.lines.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, err
	}
	var lines []models.OrderLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *mongoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

func (r *mongoRepository) List(ctx context.Context, q ListQuery) ([]models.Order, error) {
	filter := bson.M{}
	if q.Status != nil {
		filter["status"] = *q.Status
	}
	if folded := textsearch.Fold(q.Search); folded != "" {
		filter["search_key"] = bson.M{"$regex": regexp.QuoteMeta(folded)}
	}
	if q.Cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": q.Cursor.CreatedAt}},
			bson.M{"created_at": q.Cursor.CreatedAt, "_id": bson.M{"$lt": q.Cursor.ID}},
		}
	}
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(pagination.LimitWithBuffer(q.Limit)))
	return r.find(ctx, filter, opts)
}

func (r *mongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Order, error) {
	cursor, err := r.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error {
	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrStale
	}
	return nil
}
