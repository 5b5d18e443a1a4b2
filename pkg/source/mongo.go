package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"netsecml/pkg/data"
)

const connectTimeout = 10 * time.Second

// MongoSource reads and writes one MongoDB collection.
type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSource connects to uri and checks the connection with a ping.
func NewMongoSource(ctx context.Context, uri, database, collection string) (*MongoSource, error) {
	if uri == "" {
		return nil, fmt.Errorf("source: MONGODB_URI is not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("source: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("source: ping: %w", err)
	}
	return &MongoSource{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Fetch exports the whole collection. The _id column is dropped.
func (s *MongoSource) Fetch(ctx context.Context) (*data.Table, error) {
	cur, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("source: find: %w", err)
	}
	defer cur.Close(ctx)

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("source: read cursor: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	return DocumentsToTable(docs), nil
}

// Push inserts every row of t as one document and returns the inserted count.
func (s *MongoSource) Push(ctx context.Context, t *data.Table) (int, error) {
	if t.Len() == 0 {
		return 0, ErrEmpty
	}
	docs, err := TableToDocuments(t)
	if err != nil {
		return 0, err
	}
	res, err := s.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("source: insert: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// DocumentsToTable flattens documents into a table. Columns appear in order
// of first occurrence; absent fields, nulls and empty strings become missing.
func DocumentsToTable(docs []bson.D) *data.Table {
	index := map[string]int{}
	var columns []string
	for _, doc := range docs {
		for _, e := range doc {
			if e.Key == "_id" {
				continue
			}
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(columns)
				columns = append(columns, e.Key)
			}
		}
	}
	t := data.NewTable(columns...)
	for _, doc := range docs {
		row := make([]string, len(columns))
		for _, e := range doc {
			if j, ok := index[e.Key]; ok {
				row[j] = formatValue(e.Value)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// formatValue renders a BSON value the way a CSV export would: floats always
// carry a decimal point so their column stays float64.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return data.FormatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case bson.ObjectID:
		return x.Hex()
	default:
		return fmt.Sprint(x)
	}
}

// TableToDocuments converts rows into documents with typed values per the
// column dtype; missing cells become null.
func TableToDocuments(t *data.Table) ([]any, error) {
	dtypes := t.Dtypes()
	docs := make([]any, 0, t.Len())
	for i, row := range t.Rows {
		doc := make(bson.D, 0, len(t.Columns))
		for j, name := range t.Columns {
			v, err := typedValue(row[j], dtypes[name])
			if err != nil {
				return nil, fmt.Errorf("source: row %d column %q: %w", i, name, err)
			}
			doc = append(doc, bson.E{Key: name, Value: v})
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func typedValue(cell, dtype string) (any, error) {
	if data.IsMissing(cell) {
		return nil, nil
	}
	switch dtype {
	case data.Int64:
		return strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	case data.Float64:
		return strconv.ParseFloat(strings.TrimSpace(cell), 64)
	}
	return cell, nil
}
