package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jwhitelaw/errand/pkg/chat"
)

const mongoCloseTimeout = 5 * time.Second

// MongoStore persists session histories in MongoDB, one document per message.
// Use it when transcripts must survive process restarts.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		collection = "transcripts"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	store := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "ordinal", Value: 1}},
		Options: options.Index().SetName("session_ordinal"),
	})
	return err
}

func (s *MongoStore) Append(ctx context.Context, sessionID string, msgs ...chat.Message) error {
	if s == nil || s.collection == nil || len(msgs) == 0 {
		return nil
	}
	next, err := s.collection.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(msgs))
	for i, msg := range msgs {
		doc, err := encodeMessage(sessionID, next+int64(i), now, msg)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	_, err = s.collection.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if s == nil || s.collection == nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "ordinal", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []chat.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		msg, err := doc.toMessage()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, cursor.Err()
}

func (s *MongoStore) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.collection == nil {
		return nil
	}
	_, err := s.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	return err
}

// Close releases the underlying MongoDB client.
func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type messageDocument struct {
	SessionID  string    `bson:"session_id"`
	Ordinal    int64     `bson:"ordinal"`
	Role       string    `bson:"role"`
	Content    string    `bson:"content"`
	ToolCalls  string    `bson:"tool_calls,omitempty"`
	ToolCallID string    `bson:"tool_call_id,omitempty"`
	ToolName   string    `bson:"tool_name,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Tool call arguments are free-form JSON objects, so the slice is stored as
// an opaque JSON string rather than nested BSON.
func encodeMessage(sessionID string, ordinal int64, now time.Time, msg chat.Message) (messageDocument, error) {
	doc := messageDocument{
		SessionID:  sessionID,
		Ordinal:    ordinal,
		Role:       string(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		ToolName:   msg.ToolName,
		CreatedAt:  now,
	}
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return messageDocument{}, err
		}
		doc.ToolCalls = string(raw)
	}
	return doc, nil
}

func (doc messageDocument) toMessage() (chat.Message, error) {
	msg := chat.Message{
		Role:       chat.Role(doc.Role),
		Content:    doc.Content,
		ToolCallID: doc.ToolCallID,
		ToolName:   doc.ToolName,
	}
	if doc.ToolCalls != "" {
		if err := json.Unmarshal([]byte(doc.ToolCalls), &msg.ToolCalls); err != nil {
			return chat.Message{}, err
		}
	}
	return msg, nil
}
