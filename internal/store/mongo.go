package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/models"
)

// MongoStore persists users in a single collection with unique indexes
// on the lowercased email and the referral code.
type MongoStore struct {
	client  *mongo.Client
	users   *mongo.Collection
	ledgers *mongo.Collection
}

// mongoUser wraps the user document with the lowercased email the
// unique index and case-insensitive lookups run against.
type mongoUser struct {
	models.User `bson:",inline"`
	EmailLower  string `bson:"emailLower"`
}

func NewMongoStore(cfg *config.Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %v", err)
	}

	db := client.Database(cfg.MongoDB)
	s := &MongoStore{
		client:  client,
		users:   db.Collection("users"),
		ledgers: db.Collection("ledgers"),
	}

	unique := options.Index().SetUnique(true)
	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "emailLower", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "referralCode", Value: 1}}, Options: unique},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return s, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %v", err)
	}
	return &doc.User, nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"emailLower": strings.ToLower(email)})
}

func (s *MongoStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"referralCode": code})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) Create(ctx context.Context, user *models.User) error {
	doc := mongoUser{User: *user, EmailLower: strings.ToLower(user.Email)}

	_, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		// Disambiguate which unique index tripped.
		if existing, ferr := s.FindByEmail(ctx, user.Email); ferr == nil && existing != nil {
			return ErrDuplicateEmail
		}
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %v", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, user *models.User) error {
	doc := mongoUser{User: *user, EmailLower: strings.ToLower(user.Email)}

	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveLedger(ctx context.Context, userID string, snap *models.LedgerSnapshot) error {
	_, err := s.ledgers.ReplaceOne(ctx,
		bson.M{"_id": userID},
		bson.M{"_id": userID, "snapshot": snap},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %v", err)
	}
	return nil
}

func (s *MongoStore) LoadLedger(ctx context.Context, userID string) (*models.LedgerSnapshot, error) {
	var doc struct {
		Snapshot models.LedgerSnapshot `bson:"snapshot"`
	}
	err := s.ledgers.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger snapshot: %v", err)
	}
	return &doc.Snapshot, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
