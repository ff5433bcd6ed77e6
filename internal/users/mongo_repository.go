package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

type mongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository returns the users repository for the document backend.
func NewMongoRepository(client *mongopkg.Client) Repository {
	return &mongoRepository{users: client.Collection(mongopkg.CollectionUsers)}
}

func (r *mongoRepository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	user := dto.ToModel()
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return nil, repo.Translate(err)
	}
	return user, nil
}

func (r *mongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *mongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": at, "updated_at": at}})
	return repo.Translate(err)
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, repo.Translate(err)
	}
	return &user, nil
}
