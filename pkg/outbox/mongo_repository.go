package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

// MongoRepository is the Store for the document backend. Calls made with a
// session context from mongo.Client.InTx are part of that transaction.
type MongoRepository struct {
	events *mongo.Collection
	dlq    *mongo.Collection
}

func NewMongoRepository(client *mongopkg.Client) *MongoRepository {
	return &MongoRepository{
		events: client.Collection(mongopkg.CollectionOutboxEvents),
		dlq:    client.Collection(mongopkg.CollectionOutboxDLQ),
	}
}

func (r *MongoRepository) Insert(ctx context.Context, event models.OutboxEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.events.InsertOne(ctx, event)
	return err
}

func (r *MongoRepository) FetchUnpublishedForPublish(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	filter := bson.M{
		"published_at":  nil,
		"attempt_count": bson.M{"$lt": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.OutboxEvent
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MongoRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.events.UpdateByID(ctx, id, bson.M{"$set": bson.M{"published_at": time.Now().UTC()}})
	return err
}

func (r *MongoRepository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	_, updErr := r.events.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_error": truncateError(err.Error())},
		"$inc": bson.M{"attempt_count": 1},
	})
	return updErr
}

func (r *MongoRepository) MarkTerminal(ctx context.Context, id uuid.UUID, err error, terminalAttempts int) error {
	_, updErr := r.events.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"last_error":    truncateError(err.Error()),
		"attempt_count": terminalAttempts,
	}})
	return updErr
}

func (r *MongoRepository) InsertDLQ(ctx context.Context, entry models.OutboxDLQ) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := truncateError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.dlq.InsertOne(ctx, entry)
	return err
}

func (r *MongoRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.events.DeleteMany(ctx, bson.M{
		"published_at": bson.M{"$ne": nil, "$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
