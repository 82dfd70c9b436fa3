package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoUsersCollection = "users"
	mongoAddressIndex    = "assets_symbol_address"
)

type mongoAsset struct {
	Symbol  string               `bson:"symbol"`
	Address string               `bson:"address"`
	Balance primitive.Decimal128 `bson:"balance"`
}

type mongoTransaction struct {
	ID            string               `bson:"id"`
	CorrelationID string               `bson:"correlation_id,omitempty"`
	Type          string               `bson:"type"`
	Asset         string               `bson:"asset"`
	Amount        primitive.Decimal128 `bson:"amount"`
	TargetAddress string               `bson:"target_address"`
	Timestamp     time.Time            `bson:"timestamp"`
}

type mongoUser struct {
	UserID       string             `bson:"_id"`
	PINHash      string             `bson:"pin_hash"`
	IsFrozen     bool               `bson:"is_frozen"`
	Assets       []mongoAsset       `bson:"assets"`
	Transactions []mongoTransaction `bson:"transactions"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// MongoStore keeps one document per user. Update relies on multi-document
// transactions, so the server must run as a replica set.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongoStore binds the users collection of db and ensures its indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	col := db.Collection(mongoUsersCollection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "assets.symbol", Value: 1}, {Key: "assets.address", Value: 1}},
		Options: options.Index().SetName(mongoAddressIndex).SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create address index: %w", err)
	}
	return &MongoStore{client: db.Client(), col: col}, nil
}

// Create inserts the user document.
func (s *MongoStore) Create(ctx context.Context, user User) error {
	doc, err := toMongoUser(user)
	if err != nil {
		return err
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), mongoAddressIndex) {
				return ErrAddressTaken
			}
			return ErrUserExists
		}
		return err
	}
	return nil
}

// Get fetches a user by id.
func (s *MongoStore) Get(ctx context.Context, userID string) (User, error) {
	return s.findOne(ctx, userID)
}

// List returns every user ordered by creation time.
func (s *MongoStore) List(ctx context.Context) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []User
	for cur.Next(ctx) {
		var doc mongoUser
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		user, err := doc.toUser()
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, cur.Err()
}

// FindAddress lists every account registered under address.
func (s *MongoStore) FindAddress(ctx context.Context, address string) ([]AddressMatch, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "assets": 1})
	cur, err := s.col.Find(ctx, bson.M{"assets.address": address}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []AddressMatch
	for cur.Next(ctx) {
		var doc mongoUser
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		for _, a := range doc.Assets {
			if a.Address == address {
				out = append(out, AddressMatch{UserID: doc.UserID, Symbol: a.Symbol})
			}
		}
	}
	return out, cur.Err()
}

// Update runs fn inside a session transaction and replaces every touched
// document before committing.
func (s *MongoStore) Update(ctx context.Context, userIDs []string, fn func(users []*User) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		ordered := sortedUnique(userIDs)
		loaded := make(map[string]*User, len(ordered))
		for _, id := range ordered {
			user, err := s.findOne(sc, id)
			if err != nil {
				return nil, err
			}
			loaded[id] = &user
		}

		ptrs := make([]*User, len(userIDs))
		for i, id := range userIDs {
			ptrs[i] = loaded[id]
		}
		if err := fn(ptrs); err != nil {
			return nil, err
		}

		for _, id := range ordered {
			doc, err := toMongoUser(*loaded[id])
			if err != nil {
				return nil, err
			}
			res, err := s.col.ReplaceOne(sc, bson.M{"_id": id}, doc)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, ErrUserNotFound
			}
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) findOne(ctx context.Context, userID string) (User, error) {
	var doc mongoUser
	err := s.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return doc.toUser()
}

func toMongoUser(u User) (mongoUser, error) {
	doc := mongoUser{
		UserID:       u.UserID,
		PINHash:      u.PINHash,
		IsFrozen:     u.IsFrozen,
		Assets:       make([]mongoAsset, 0, len(u.Assets)),
		Transactions: make([]mongoTransaction, 0, len(u.Transactions)),
		CreatedAt:    u.CreatedAt.UTC(),
	}
	for symbol, acct := range u.Assets {
		balance, err := primitive.ParseDecimal128(acct.Balance.String())
		if err != nil {
			return mongoUser{}, fmt.Errorf("encode balance %s: %w", symbol, err)
		}
		doc.Assets = append(doc.Assets, mongoAsset{Symbol: symbol, Address: acct.Address, Balance: balance})
	}
	for _, rec := range u.Transactions {
		amount, err := primitive.ParseDecimal128(rec.Amount.String())
		if err != nil {
			return mongoUser{}, fmt.Errorf("encode amount %s: %w", rec.ID, err)
		}
		doc.Transactions = append(doc.Transactions, mongoTransaction{
			ID:            rec.ID,
			CorrelationID: rec.CorrelationID,
			Type:          string(rec.Type),
			Asset:         rec.Asset,
			Amount:        amount,
			TargetAddress: rec.TargetAddress,
			Timestamp:     rec.Timestamp.UTC(),
		})
	}
	return doc, nil
}

func (d mongoUser) toUser() (User, error) {
	user := User{
		UserID:       d.UserID,
		PINHash:      d.PINHash,
		IsFrozen:     d.IsFrozen,
		Assets:       make(Assets, len(d.Assets)),
		Transactions: make([]TransactionRecord, 0, len(d.Transactions)),
		CreatedAt:    d.CreatedAt.UTC(),
	}
	for _, a := range d.Assets {
		balance, err := decimal.NewFromString(a.Balance.String())
		if err != nil {
			return User{}, fmt.Errorf("decode balance %s/%s: %w", d.UserID, a.Symbol, err)
		}
		user.Assets[a.Symbol] = AssetAccount{Address: a.Address, Balance: balance}
	}
	for _, t := range d.Transactions {
		amount, err := decimal.NewFromString(t.Amount.String())
		if err != nil {
			return User{}, fmt.Errorf("decode amount %s: %w", t.ID, err)
		}
		user.Transactions = append(user.Transactions, TransactionRecord{
			ID:            t.ID,
			CorrelationID: t.CorrelationID,
			Type:          TxType(t.Type),
			Asset:         t.Asset,
			Amount:        amount,
			TargetAddress: t.TargetAddress,
			Timestamp:     t.Timestamp.UTC(),
		})
	}
	return user, nil
}
