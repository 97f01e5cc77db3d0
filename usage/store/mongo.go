package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/competeiq/tripartite/usage"
)

// MongoRecorder implements usage.Recorder on MongoDB.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "tripartite",
		Collection: "ai_usage",
	}
}

type mongoUsageDoc struct {
	UserID          string    `bson:"user_id"`
	FunctionName    string    `bson:"function_name"`
	AgentType       string    `bson:"agent_type"`
	Model           string    `bson:"model"`
	InputTokens     int       `bson:"input_tokens"`
	OutputTokens    int       `bson:"output_tokens"`
	CreditsConsumed int       `bson:"credits_consumed"`
	CostUSD         float64   `bson:"cost_usd"`
	ValidationScore int       `bson:"validation_score"`
	Regenerated     bool      `bson:"regenerated"`
	HasWebData      bool      `bson:"has_web_data"`
	CreatedAt       time.Time `bson:"created_at"`
}

// NewMongoRecorder connects to MongoDB and verifies the connection.
func NewMongoRecorder(ctx context.Context, config *MongoConfig) (*MongoRecorder, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	return &MongoRecorder{client: client, collection: collection}, nil
}

// Record implements usage.Recorder.
func (r *MongoRecorder) Record(ctx context.Context, rec usage.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	doc := mongoUsageDoc{
		UserID:          rec.UserID,
		FunctionName:    rec.FunctionName,
		AgentType:       rec.AgentType,
		Model:           rec.Model,
		InputTokens:     rec.InputTokens,
		OutputTokens:    rec.OutputTokens,
		CreditsConsumed: rec.CreditsConsumed,
		CostUSD:         rec.CostUSD,
		ValidationScore: rec.ValidationScore,
		Regenerated:     rec.Regenerated,
		HasWebData:      rec.HasWebData,
		CreatedAt:       rec.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
