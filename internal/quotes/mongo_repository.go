package quotes

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	quotes   *mongo.Collection
	declined *mongo.Collection
}

func NewMongoRepository(client *mongopkg.Client) Repository {
	return &mongoRepository{
		quotes:   client.Collection(mongopkg.CollectionQuoteRequests),
		declined: client.Collection(mongopkg.CollectionDeclinedQuotes),
	}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func searchFilter(filter bson.M, term string) {
	if folded := textsearch.Fold(term); folded != "" {
		filter["search_key"] = bson.M{"$regex": regexp.QuoteMeta(folded)}
	}
}

func (r *mongoRepository) Create(ctx context.Context, quote *models.QuoteRequest) error {
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = time.Now().UTC()
	}
	quote.UpdatedAt = quote.CreatedAt
	_, err := r.quotes.InsertOne(ctx, quote)
	return repo.Translate(err)
}

func (r *mongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var quote models.QuoteRequest
	if err := r.quotes.FindOne(ctx, bson.M{"_id": id}).Decode(&quote); err != nil {
		return nil, repo.Translate(err)
	}
	return &quote, nil
}

func (r *mongoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuoteRequest, error) {
	return r.findQuotes(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

func (r *mongoRepository) ListActive(ctx context.Context, q ListQuery) ([]models.QuoteRequest, error) {
	status := bson.M{"$ne": enums.QuoteStatusDeclined}
	if q.Status != nil {
		status["$eq"] = *q.Status
	}
	filter := bson.M{"status": status}
	searchFilter(filter, q.Search)
	if q.Cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": q.Cursor.CreatedAt}},
			bson.M{"created_at": q.Cursor.CreatedAt, "_id": bson.M{"$lt": q.Cursor.ID}},
		}
	}
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(pagination.LimitWithBuffer(q.Limit)))
	return r.findQuotes(ctx, filter, opts)
}

func (r *mongoRepository) findQuotes(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.QuoteRequest, error) {
	cursor, err := r.quotes.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.QuoteRequest
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, price *decimal.Decimal, at time.Time) error {
	set := bson.M{"status": to, "updated_at": at}
	if price != nil {
		set["quoted_price"] = *price
	}
	res, err := r.quotes.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrStale
	}
	return nil
}

func (r *mongoRepository) CreateDeclined(ctx context.Context, declined *models.DeclinedQuote) error {
	if declined.CreatedAt.IsZero() {
		declined.CreatedAt = time.Now().UTC()
	}
	_, err := r.declined.InsertOne(ctx, declined)
	return repo.Translate(err)
}

func (r *mongoRepository) FindDeclined(ctx context.Context, id uuid.UUID) (*models.DeclinedQuote, error) {
	var row models.DeclinedQuote
	if err := r.declined.FindOne(ctx, bson.M{"_id": id}).Decode(&row); err != nil {
		return nil, repo.Translate(err)
	}
	return &row, nil
}

func (r *mongoRepository) ListDeclined(ctx context.Context, search string) ([]models.DeclinedQuote, error) {
	filter := bson.M{}
	searchFilter(filter, search)
	opts := options.Find().
		SetSort(bson.D{{Key: "declined_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(maxDeclinedList)
	cursor, err := r.declined.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.DeclinedQuote
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
