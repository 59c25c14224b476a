package session

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newFindOneLatest() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
}
