package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

type clanRepository struct {
	coll *mongo.Collection
}

var _ domain.Repository = (*clanRepository)(nil)

var byCreation = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *clanRepository) Find(ctx context.Context, f domain.Filter) ([]*domain.Clan, error) {
	cur, err := r.coll.Find(ctx, filterDocument(f), options.Find().SetSort(byCreation))
	if err != nil {
		return nil, fmt.Errorf("failed to query clans: %w", err)
	}
	var docs []clanDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode clans: %w", err)
	}
	clans := make([]*domain.Clan, len(docs))
	for i, d := range docs {
		clans[i] = d.toDomain()
	}
	return clans, nil
}

func (r *clanRepository) FindOne(ctx context.Context, f domain.Filter) (*domain.Clan, error) {
	var doc clanDocument
	err := r.coll.FindOne(ctx, filterDocument(f), options.FindOne().SetSort(byCreation)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ClanNotFoundError{Key: f.ID + f.RoleID + f.LeaderChatID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find clan: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *clanRepository) Insert(ctx context.Context, c *domain.Clan) error {
	if _, err := r.coll.InsertOne(ctx, toClanDocument(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKey(err)
		}
		return fmt.Errorf("failed to insert clan: %w", err)
	}
	return nil
}

func (r *clanRepository) Update(ctx context.Context, id string, p domain.Patch) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: setDocument(p, time.Now())}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKey(err)
		}
		return fmt.Errorf("failed to update clan: %w", err)
	}
	if res.MatchedCount == 0 {
		return &domain.ClanNotFoundError{Key: id}
	}
	return nil
}

func (r *clanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete clan: %w", err)
	}
	if res.DeletedCount == 0 {
		return &domain.ClanNotFoundError{Key: id}
	}
	return nil
}

// Close is a no-op; the client is owned by Store.
func (r *clanRepository) Close() error {
	return nil
}

func duplicateKey(err error) *domain.IntegrityError {
	msg := err.Error()
	field := ""
	switch {
	case strings.Contains(msg, tagIndexName):
		field = "tag"
	case strings.Contains(msg, nameIndexName):
		field = "name"
	}
	return &domain.IntegrityError{Field: field, Err: err}
}
