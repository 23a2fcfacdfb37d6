// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client    *mongo.Client
	Messages  *mongo.Collection
	Counters  *mongo.Collection
	Reminders *mongo.Collection
	ChatLogs  *mongo.Collection
	Alerts    *mongo.Collection
	Patients  *mongo.Collection
	logger    *slog.Logger
}

var _ Store = (*MongoDB)(nil)

func NewMongoDB(uri, dbName string, logger *slog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", dbName)

	db := client.Database(dbName)
	m := &MongoDB{
		Client:    client,
		Messages:  db.Collection("messages"),
		Counters:  db.Collection("counters"),
		Reminders: db.Collection("reminders"),
		ChatLogs:  db.Collection("chat_logs"),
		Alerts:    db.Collection("emergency_alerts"),
		Patients:  db.Collection("patient_contacts"),
		logger:    logger,
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureIndexes creates the pair, unread and owner indexes. It is safe to
// call on every start.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.Messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pairKey", Value: 1}, {Key: "sentAt", Value: 1}, {Key: "seq", Value: 1}}},
		{
			Keys:    bson.D{{Key: "receiverId", Value: 1}, {Key: "senderId", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{"isRead": false}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	_, err = m.Reminders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "active", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder index: %w", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	m.logger.Info("closing MongoDB connection")
	return m.Client.Disconnect(ctx)
}
