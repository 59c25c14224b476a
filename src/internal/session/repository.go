package session

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

// activeStates filters queries to sessions still counted as running.
var activeStates = bson.M{"$in": []models.SessionState{
	models.StateStarting,
	models.StateOnline,
	models.StateIdleWarning,
	models.StateStopping,
}}

// Repository persists session snapshots for audit and recovery. The
// in-memory registry stays authoritative at runtime; callers treat
// write failures as log-and-continue.
type Repository interface {
	Create(ctx context.Context, sess *models.BotSession) error
	GetLatest(ctx context.Context, accountID string) (*models.BotSession, error)
	UpdateState(ctx context.Context, sessionID string, state models.SessionState) error
	UpdateActivity(ctx context.Context, sessionID string, at time.Time) error
	RecordExtension(ctx context.Context, sessionID string, used int, at time.Time) error
	UpdateCosmetics(ctx context.Context, sessionID string, loadout models.Cosmetics, at time.Time) error
	End(ctx context.Context, sessionID string, reason models.TerminationReason, at time.Time) error
	CloseDangling(ctx context.Context) (int64, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) Create(ctx context.Context, sess *models.BotSession) error {
	_, err := r.collection.InsertOne(ctx, sess)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sess.SessionID).Error("Failed to persist session")
		return models.ErrDatabaseInsert
	}
	return nil
}

func (r *repository) GetLatest(ctx context.Context, accountID string) (*models.BotSession, error) {
	var sess models.BotSession
	filter := bson.M{"account_id": accountID}
	opts := newFindOneLatest()

	err := r.collection.FindOne(ctx, filter, opts).Decode(&sess)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}

	return &sess, nil
}

func (r *repository) UpdateState(ctx context.Context, sessionID string, state models.SessionState) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{"state": state}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session state")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *repository) UpdateActivity(ctx context.Context, sessionID string, at time.Time) error {
	filter := bson.M{"session_id": sessionID, "state": activeStates}
	update := bson.M{"$set": bson.M{
		"last_activity_at": at,
		"state":            models.StateOnline,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session activity")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *repository) RecordExtension(ctx context.Context, sessionID string, used int, at time.Time) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"extensions_used":  used,
		"last_activity_at": at,
		"state":            models.StateOnline,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to record session extension")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *repository) UpdateCosmetics(ctx context.Context, sessionID string, loadout models.Cosmetics, at time.Time) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"cosmetics":        loadout,
		"last_activity_at": at,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session cosmetics")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *repository) End(ctx context.Context, sessionID string, reason models.TerminationReason, at time.Time) error {
	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"state":              models.StateOffline,
		"ended_at":           at,
		"termination_reason": reason,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to end session")
		return models.ErrDatabaseUpdate
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"reason":     reason,
	}).Info("Session ended")
	return nil
}

// CloseDangling marks every session still recorded as active as ended
// with reason shutdown. Run once at boot: anything active in the store
// before the registry exists is a leftover from an unclean exit.
func (r *repository) CloseDangling(ctx context.Context) (int64, error) {
	filter := bson.M{"state": activeStates}
	update := bson.M{"$set": bson.M{
		"state":              models.StateOffline,
		"ended_at":           time.Now().UTC(),
		"termination_reason": models.ReasonShutdown,
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).Error("Failed to close dangling sessions")
		return 0, models.ErrDatabaseUpdate
	}

	if result.ModifiedCount > 0 {
		logrus.WithField("count", result.ModifiedCount).Warn("Closed dangling sessions from previous run")
	}
	return result.ModifiedCount, nil
}
