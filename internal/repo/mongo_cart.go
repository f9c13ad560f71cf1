package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	CustomerID string             `bson:"_id"`
	Items      []cartItemDocument `bson:"items"`
	Version    int64              `bson:"version"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

type cartItemDocument struct {
	ProductID string  `bson:"product_id"`
	Name      string  `bson:"name"`
	UnitPrice string  `bson:"unit_price"`
	Quantity  int     `bson:"quantity"`
	ImageRef  *string `bson:"image_ref,omitempty"`
}

// MongoCartStore stores one document per customer and guards writes with a
// version field: a replace only matches the version it was computed from.
type MongoCartStore struct {
	collection *mongo.Collection
	maxRetries int
}

func NewMongoCartStore(db *mongo.Database) *MongoCartStore {
	return &MongoCartStore{
		collection: db.Collection("carts"),
		maxRetries: defaultMaxRetries,
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoCartStore) Get(ctx context.Context, customerID string) ([]models.CartItem, error) {
	doc, _, err := m.find(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return itemsFromDocuments(doc.Items)
}

func (m *MongoCartStore) GetVersioned(ctx context.Context, customerID string) ([]models.CartItem, int64, error) {
	doc, _, err := m.find(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}
	items, err := itemsFromDocuments(doc.Items)
	if err != nil {
		return nil, 0, err
	}
	return items, doc.Version, nil
}

func (m *MongoCartStore) Update(ctx context.Context, customerID string, fn MutateFunc) ([]models.CartItem, error) {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		doc, exists, err := m.find(ctx, customerID)
		if err != nil {
			return nil, err
		}

		current, err := itemsFromDocuments(doc.Items)
		if err != nil {
			return nil, err
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		next = nonNil(next)

		replacement := cartDocument{
			CustomerID: customerID,
			Items:      itemsToDocuments(next),
			Version:    doc.Version + 1,
			UpdatedAt:  time.Now().UTC(),
		}

		if !exists {
			_, err = m.collection.InsertOne(ctx, replacement)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to create cart: %w", err)
			}
			return models.CloneItems(next), nil
		}

		res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": customerID, "version": doc.Version}, replacement)
		if err != nil {
			return nil, fmt.Errorf("failed to replace cart: %w", err)
		}
		if res.MatchedCount == 0 {
			continue
		}
		return models.CloneItems(next), nil
	}

	return nil, ErrConflict
}

func (m *MongoCartStore) Clear(ctx context.Context, customerID string) error {
	update := bson.M{
		"$set": bson.M{"items": bson.A{}, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": customerID}, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (m *MongoCartStore) ClearVersion(ctx context.Context, customerID string, version int64) (bool, error) {
	update := bson.M{
		"$set": bson.M{"items": bson.A{}, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": customerID, "version": version}, update)
	if err != nil {
		return false, fmt.Errorf("failed to clear cart: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// an absent cart is empty at version 0
	_, exists, err := m.find(ctx, customerID)
	if err != nil {
		return false, err
	}
	return !exists && version == 0, nil
}

func (m *MongoCartStore) find(ctx context.Context, customerID string) (cartDocument, bool, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": customerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cartDocument{CustomerID: customerID}, false, nil
	}
	if err != nil {
		return cartDocument{}, false, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc, true, nil
}

func itemsFromDocuments(docs []cartItemDocument) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0, len(docs))
	for _, d := range docs {
		price, err := decimal.NewFromString(d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("bad unit_price for product %s: %w", d.ProductID, err)
		}
		items = append(items, models.CartItem{
			ProductID: d.ProductID,
			Name:      d.Name,
			UnitPrice: price,
			Quantity:  d.Quantity,
			ImageRef:  d.ImageRef,
		})
	}
	return items, nil
}

func itemsToDocuments(items []models.CartItem) []cartItemDocument {
	docs := make([]cartItemDocument, 0, len(items))
	for _, it := range items {
		docs = append(docs, cartItemDocument{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.String(),
			Quantity:  it.Quantity,
			ImageRef:  it.ImageRef,
		})
	}
	return docs
}
