package persistence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bourse/internal/domain"
)

// orderDoc and historyDoc are the wire shapes written to Mongo, grounded on
// mongorepo.py's collection layout: an "orders" collection keyed by order id
// and a "history" collection keyed by a monotonic sequence. Unpriced is a
// missing/null field rather than the source's -1 sentinel.
type orderDoc struct {
	ID        uint64   `bson:"_id"`
	StockName string   `bson:"stock_name"`
	Side      string   `bson:"side"`
	Kind      string   `bson:"order_type"`
	Price     *float64 `bson:"price,omitempty"`
	Total     uint64   `bson:"total_amount"`
	Filled    uint64   `bson:"filled_amount"`
	Status    string   `bson:"status"`
	Ref       string   `bson:"ref"`
}

type historyDoc struct {
	Seq       uint64  `bson:"_id"`
	StockName string  `bson:"stock_name"`
	Price     float64 `bson:"price"`
}

// Mongo is a Recorder backed by a MongoDB database, mirroring the two
// collections mongorepo.py maintained.
type Mongo struct {
	orders  *mongo.Collection
	history *mongo.Collection
}

// NewMongo connects to uri and returns a Recorder writing to database db's
// "orders" and "history" collections.
func NewMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	database := client.Database(db)
	return &Mongo{
		orders:  database.Collection("orders"),
		history: database.Collection("history"),
	}, nil
}

func (m *Mongo) RecordOrder(ctx context.Context, doc domain.Document) error {
	d := orderDoc{
		ID:        doc.ID,
		StockName: doc.StockName,
		Side:      doc.Side,
		Kind:      doc.Kind,
		Total:     doc.Total,
		Filled:    doc.Filled,
		Status:    doc.Status,
		Ref:       doc.Ref,
	}
	if doc.Price != nil {
		f, _ := doc.Price.Float64()
		d.Price = &f
	}
	opts := options.Replace().SetUpsert(true)
	_, err := m.orders.ReplaceOne(ctx, bson.M{"_id": d.ID}, d, opts)
	if err != nil {
		return fmt.Errorf("persistence: record order %d: %w", doc.ID, err)
	}
	return nil
}

func (m *Mongo) RecordHistory(ctx context.Context, entry domain.History) error {
	price, _ := entry.Price.Float64()
	d := historyDoc{Seq: entry.ID, StockName: entry.StockName, Price: price}
	_, err := m.history.InsertOne(ctx, d)
	if err != nil {
		return fmt.Errorf("persistence: record history %d: %w", entry.ID, err)
	}
	return nil
}
