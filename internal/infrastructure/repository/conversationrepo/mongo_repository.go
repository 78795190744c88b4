package conversationrepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/utils/platformerrors"
)

// Collection names match the ones existing deployments already hold.
const (
	ChatCollection      = "chatconversations"
	ClassroomCollection = "classroomconversations"
)

type conversationDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	User          any                `bson:"user"`
	AssistantType string             `bson:"assistantType,omitempty"`
	Messages      []messageDocument  `bson:"messages"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type messageDocument struct {
	ID         primitive.ObjectID  `bson:"_id"`
	Role       string              `bson:"role"`
	Content    string              `bson:"content"`
	Attachment *attachmentDocument `bson:"attachment,omitempty"`
	Timestamp  time.Time           `bson:"timestamp"`
}

type attachmentDocument struct {
	Filename string `bson:"filename"`
	MimeType string `bson:"mimetype"`
	Size     int64  `bson:"size"`
}

// MongoRepository keeps each conversation as one document with embedded messages.
// General chats and classroom chats live in separate collections.
type MongoRepository struct {
	chat      *mongo.Collection
	classroom *mongo.Collection
}

// NewMongoRepository creates a repository backed by the provided database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		chat:      db.Collection(ChatCollection),
		classroom: db.Collection(ClassroomCollection),
	}
}

// EnsureIndexes creates the unique indexes that keep one conversation per key.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.chat.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user"),
	}); err != nil {
		return err
	}
	_, err := r.classroom.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "assistantType", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user_assistant"),
	})
	return err
}

func (r *MongoRepository) FindOrCreate(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	conv, err := r.Find(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Conversation{UserID: key.UserID, Assistant: key.Assistant, Turns: []domain.Turn{}}, nil
	}
	return conv, err
}

func (r *MongoRepository) Find(ctx context.Context, key domain.Key) (*domain.Conversation, error) {
	var doc conversationDocument
	err := r.collection(key).FindOne(ctx, filterFor(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "find conversation", err)
	}
	return doc.toDomain(key), nil
}

// AppendTurns pushes all turns in a single upsert, so the append is atomic per document.
func (r *MongoRepository) AppendTurns(ctx context.Context, conv *domain.Conversation, turns []domain.Turn, updatedAt time.Time) (*domain.Conversation, error) {
	key := conv.Key()
	messages := make([]messageDocument, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, messageFromDomain(turn))
	}

	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": messages}},
		"$set":         bson.M{"updatedAt": updatedAt},
		"$setOnInsert": bson.M{"createdAt": updatedAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDocument
	err := r.collection(key).FindOneAndUpdate(ctx, filterFor(key), update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race against the unique index; the document exists now.
		err = r.collection(key).FindOneAndUpdate(ctx, filterFor(key), update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "append conversation turns", err)
	}
	return doc.toDomain(key), nil
}

func (r *MongoRepository) GetHistory(ctx context.Context, key domain.Key) ([]domain.Turn, error) {
	conv, err := r.Find(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

func (r *MongoRepository) Clear(ctx context.Context, key domain.Key) error {
	if _, err := r.collection(key).DeleteOne(ctx, filterFor(key)); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "clear conversation", err)
	}
	return nil
}

func (r *MongoRepository) collection(key domain.Key) *mongo.Collection {
	if key.Assistant.IsClassroom() {
		return r.classroom
	}
	return r.chat
}

func filterFor(key domain.Key) bson.M {
	if key.Assistant.IsClassroom() {
		return bson.M{"user": userRef(key.UserID), "assistantType": string(key.Assistant)}
	}
	return bson.M{"user": userRef(key.UserID)}
}

// userRef stores user ids that are ObjectID hex strings as ObjectIDs, the way user
// references are kept by the account service. Other ids are stored verbatim.
func userRef(userID string) any {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil && oid.Hex() == userID {
		return oid
	}
	return userID
}

func messageFromDomain(turn domain.Turn) messageDocument {
	doc := messageDocument{
		ID:        primitive.NewObjectID(),
		Role:      string(turn.Role),
		Content:   turn.Content,
		Timestamp: turn.Timestamp,
	}
	if turn.Attachment != nil {
		doc.Attachment = &attachmentDocument{
			Filename: turn.Attachment.Filename,
			MimeType: turn.Attachment.MimeType,
			Size:     turn.Attachment.Size,
		}
	}
	return doc
}

func (d conversationDocument) toDomain(key domain.Key) *domain.Conversation {
	conv := &domain.Conversation{
		ID:        d.ID.Hex(),
		UserID:    key.UserID,
		Assistant: key.Assistant,
		Turns:     make([]domain.Turn, 0, len(d.Messages)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, m := range d.Messages {
		turn := domain.Turn{
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		if m.Attachment != nil {
			turn.Attachment = &domain.Attachment{
				Filename: m.Attachment.Filename,
				MimeType: m.Attachment.MimeType,
				Size:     m.Attachment.Size,
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv
}

var _ domain.Repository = (*MongoRepository)(nil)
