package database

import (
	"context"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageDocument represents the MongoDB document structure for direct messages
type MessageDocument struct {
	ID         string     `bson:"_id"`
	Seq        int64      `bson:"seq"`
	PairKey    string     `bson:"pairKey"`
	SenderID   string     `bson:"senderId"`
	ReceiverID string     `bson:"receiverId"`
	Body       string     `bson:"body"`
	SentAt     time.Time  `bson:"sentAt"`
	IsRead     bool       `bson:"isRead"`
	ReadAt     *time.Time `bson:"readAt,omitempty"`
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + "|" + bs
}

func toMessageDocument(msg *models.Message) MessageDocument {
	return MessageDocument{
		ID:         msg.ID.String(),
		Seq:        msg.Seq,
		PairKey:    PairKey(msg.SenderID, msg.ReceiverID),
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Body:       msg.Body,
		SentAt:     msg.SentAt,
		IsRead:     msg.Read,
		ReadAt:     msg.ReadAt,
	}
}

func (doc MessageDocument) toModel() (*models.Message, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	senderID, err := uuid.Parse(doc.SenderID)
	if err != nil {
		return nil, err
	}
	receiverID, err := uuid.Parse(doc.ReceiverID)
	if err != nil {
		return nil, err
	}
	return &models.Message{
		ID:         id,
		Seq:        doc.Seq,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       doc.Body,
		SentAt:     doc.SentAt.UTC(),
		Read:       doc.IsRead,
		ReadAt:     doc.ReadAt,
	}, nil
}

// nextSeq hands out insertion numbers from a counters document.
func (m *MongoDB) nextSeq(ctx context.Context, name string) (int64, error) {
	var out struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.Counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&out)
	return out.Value, err
}

// AppendMessage saves a new direct message to MongoDB
func (m *MongoDB) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	stored := msg.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	seq, err := m.nextSeq(ctx, "messages")
	if err != nil {
		return nil, utils.StoreError("allocate message seq", err)
	}
	stored.Seq = seq

	if _, err := m.Messages.InsertOne(ctx, toMessageDocument(stored)); err != nil {
		return nil, utils.StoreError("append message", err)
	}
	return stored, nil
}

func (m *MongoDB) findMessages(ctx context.Context, op string, filter bson.M) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "seq", Value: 1}})
	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.StoreError(op, err)
	}
	defer cursor.Close(ctx)

	messages := make([]*models.Message, 0)
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.StoreError(op, err)
		}
		msg, err := doc.toModel()
		if err != nil {
			return nil, utils.StoreError(op, err)
		}
		messages = append(messages, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.StoreError(op, err)
	}
	return messages, nil
}

func (m *MongoDB) QueryMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	return m.findMessages(ctx, "query conversation", bson.M{"pairKey": PairKey(a, b)})
}

// QueryMessagesForUser retrieves all messages for a user (both sent and received)
func (m *MongoDB) QueryMessagesForUser(ctx context.Context, user uuid.UUID) ([]*models.Message, error) {
	id := user.String()
	return m.findMessages(ctx, "query user messages", bson.M{
		"$or": []bson.M{
			{"senderId": id},
			{"receiverId": id},
		},
	})
}

func (m *MongoDB) SetRead(ctx context.Context, sender, receiver uuid.UUID, at time.Time) (int64, error) {
	result, err := m.Messages.UpdateMany(ctx,
		bson.M{"senderId": sender.String(), "receiverId": receiver.String(), "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return 0, utils.StoreError("mark read", err)
	}
	return result.ModifiedCount, nil
}

func (m *MongoDB) CountUnread(ctx context.Context, recipient uuid.UUID) (int64, error) {
	n, err := m.Messages.CountDocuments(ctx, bson.M{"receiverId": recipient.String(), "isRead": false})
	if err != nil {
		return 0, utils.StoreError("count unread", err)
	}
	return n, nil
}
