package accounts

import (
	"context"
	"errors"
	"time"

	"fortnite-lobbybot-svc/src/clients"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	GetByUsername(ctx context.Context, ownerID, epicUsername string) (*EpicAccount, error)
	GetByID(ctx context.Context, accountID string) (*EpicAccount, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*EpicAccount, error)
	Create(ctx context.Context, account *EpicAccount) error
	Remove(ctx context.Context, ownerID, epicUsername string) error
	UpdateStatus(ctx context.Context, accountID, status string) error
	MarkUsed(ctx context.Context, accountID string) error
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewAccountRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) GetByUsername(ctx context.Context, ownerID, epicUsername string) (*EpicAccount, error) {
	var account EpicAccount
	filter := bson.M{"owner_id": ownerID, "epic_username": epicUsername}

	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAccountNotFound
		}
		logrus.WithError(err).WithField("epic_username", epicUsername).Error("Failed to get account")
		return nil, models.ErrDatabaseQuery
	}

	return &account, nil
}

func (r *repository) GetByID(ctx context.Context, accountID string) (*EpicAccount, error) {
	var account EpicAccount
	filter := bson.M{"account_id": accountID}

	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAccountNotFound
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to get account")
		return nil, models.ErrDatabaseQuery
	}

	return &account, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]*EpicAccount, error) {
	filter := bson.M{"owner_id": ownerID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID).Error("Failed to list accounts")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var accounts []*EpicAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		logrus.WithError(err).Error("Failed to decode accounts")
		return nil, models.ErrDatabaseQuery
	}

	return accounts, nil
}

func (r *repository) Create(ctx context.Context, account *EpicAccount) error {
	account.AddedAt = time.Now().UTC()
	if account.Status == "" {
		account.Status = StatusActive
	}

	_, err := r.collection.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateAccount
		}
		logrus.WithError(err).WithField("epic_username", account.EpicUsername).Error("Failed to create account")
		return models.ErrDatabaseInsert
	}

	return nil
}

func (r *repository) Remove(ctx context.Context, ownerID, epicUsername string) error {
	filter := bson.M{"owner_id": ownerID, "epic_username": epicUsername}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		logrus.WithError(err).WithField("epic_username", epicUsername).Error("Failed to remove account")
		return models.ErrDatabaseDelete
	}
	if result.DeletedCount == 0 {
		return models.ErrAccountNotFound
	}

	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, accountID, status string) error {
	filter := bson.M{"account_id": accountID}
	update := bson.M{"$set": bson.M{"status": status}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to update account status")
		return models.ErrDatabaseUpdate
	}

	return nil
}

func (r *repository) MarkUsed(ctx context.Context, accountID string) error {
	filter := bson.M{"account_id": accountID}
	update := bson.M{
		"$set": bson.M{"last_used_at": time.Now().UTC()},
		"$inc": bson.M{"total_sessions": 1},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to mark account used")
		return models.ErrDatabaseUpdate
	}

	return nil
}

func (r *repository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID).Error("Failed to count accounts")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (r *repository) CountAll(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("Failed to count accounts")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}
