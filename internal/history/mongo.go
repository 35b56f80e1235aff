package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"github.com/lovedemo/seedManage/internal/domain"
)

const mongoCollection = "search_history"

type historyDoc struct {
	ID        string                      `bson:"_id"`
	Query     string                      `bson:"query"`
	Mode      string                      `bson:"mode"`
	CreatedAt int64                       `bson:"createdAt"`
	Meta      domain.SearchMeta           `bson:"meta"`
	Results   []domain.ResourceDescriptor `bson:"results"`
}

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	limit      int
}

// ConnectMongo opens a traced client.
func ConnectMongo(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{
		options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor()),
	}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func NewMongoStore(client *mongo.Client, dbName string, limit int) *MongoStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(mongoCollection),
		limit:      limit,
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	doc := historyDoc{
		ID:        entry.ID,
		Query:     entry.Query,
		Mode:      string(entry.Mode),
		CreatedAt: entry.CreatedAt.UnixNano(),
		Meta:      entry.Meta,
		Results:   entry.Results,
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return s.prune(ctx)
}

// prune deletes everything older than the newest limit entries.
func (s *MongoStore) prune(ctx context.Context) error {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(s.limit)).
		SetProjection(bson.M{"createdAt": 1})
	var cutoff struct {
		CreatedAt int64 `bson:"createdAt"`
	}
	if err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&cutoff); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
	_, err := s.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lte": cutoff.CreatedAt}})
	return err
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(clampLimit(limit, s.limit)))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []historyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.HistoryEntry{
			ID:        doc.ID,
			Query:     doc.Query,
			CreatedAt: time.Unix(0, doc.CreatedAt).UTC(),
			Mode:      domain.SearchMode(doc.Mode),
			Meta:      doc.Meta,
			Results:   doc.Results,
		})
	}
	return entries, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
