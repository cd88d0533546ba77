// Package mongo is the MongoDB-backed clan store, selected with
// storage.backend: mongo.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/log"
)

const (
	tagIndexName  = "guild_tag_unique"
	nameIndexName = "guild_name_unique"

	connectTimeout = 10 * time.Second
)

// caseInsensitive makes string comparison ignore case for the unique
// indexes, matching the tag and name rules.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Store owns the client connection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri, pings the deployment and ensures the clan indexes.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(database).Collection(collection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info(log.CatDB, "Connected to mongo", "database", database, "collection", collection)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "tag", Value: 1}},
			Options: options.Index().SetName(tagIndexName).SetUnique(true).SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName(nameIndexName).SetUnique(true).SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "leader.chat_id", Value: 1}},
			Options: options.Index().SetName("guild_leader"),
		},
		{
			Keys:    bson.D{{Key: "role_id", Value: 1}},
			Options: options.Index().SetName("role"),
		},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating clan indexes: %w", err)
	}
	return nil
}

// ClanRepository returns a repository over the clan collection.
func (s *Store) ClanRepository() domain.Repository {
	return &clanRepository{coll: s.coll}
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
