package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finassist/internal/logging"
	"finassist/internal/types"
)

const conversationsCollection = "conversations"

// conversationDoc is one conversation with its embedded turns.
type conversationDoc struct {
	ID        string       `bson:"_id"`
	UserID    string       `bson:"user_id"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
	Turns     []storedTurn `bson:"turns"`
}

// MongoStore keeps conversations as documents and appends with $push.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and ensures the user index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	if database == "" {
		database = "finassist"
	}
	coll := client.Database(database).Collection(conversationsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// AppendTurns $pushes the turns onto the user's latest conversation,
// upserting it on first use.
func (s *MongoStore) AppendTurns(ctx context.Context, userID string, turns []types.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	encoded, err := encodeTurns(turns)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	update := bson.M{
		"$push":        bson.M{"turns": bson.M{"$each": encoded}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"_id": uuid.NewString(), "created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetUpsert(true)
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	logging.StoreDebug("mongo: appended %d turns for %s", len(encoded), userID)
	return nil
}

// ReadLatest returns the last limit turns using a $slice projection.
func (s *MongoStore) ReadLatest(ctx context.Context, userID string, limit int) ([]types.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"turns": bson.M{"$slice": -limit}})

	var doc conversationDoc
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	out := make([]types.ConversationTurn, 0, len(doc.Turns))
	for _, st := range doc.Turns {
		st.Timestamp = st.Timestamp.UTC()
		out = append(out, decodeTurn(st))
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
