package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"go.pilab.hu/ghlink/domain"
)

const InstallationLinksCollection = "installation_links"

// ConnectMongo connects, instruments the client with OpenTelemetry and pings
// the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	log.Info().Msg("Initializing MongoDB client")

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	log.Info().Msg("MongoDB client initialized successfully.")

	return client, nil
}

// Mongo keys documents by account id, so the unique _id index enforces one
// link per account.
type Mongo struct {
	collection *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{collection: db.Collection(InstallationLinksCollection)}
}

func (m *Mongo) Get(ctx context.Context, accountID string) (*domain.InstallationLink, error) {
	var link domain.InstallationLink
	err := m.collection.FindOne(ctx, bson.M{"_id": accountID}).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get installation link from MongoDB: %w", err)
	}

	return &link, nil
}

func (m *Mongo) Put(ctx context.Context, link *domain.InstallationLink) error {
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"_id": link.AccountID},
		link,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store installation link in MongoDB: %w", err)
	}

	return nil
}

func (m *Mongo) List(ctx context.Context) ([]*domain.InstallationLink, error) {
	cursor, err := m.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list installation links: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.InstallationLink
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode installation links: %w", err)
	}

	return out, nil
}

var _ domain.InstallationDirectory = (*Mongo)(nil)
