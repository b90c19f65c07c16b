package storage

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NepZR/brnews/internal/types"
)

// MongoStore is the document-store backend. One instance is bound to a
// single collection: "news" or "comments".
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	kind   string
	logger *slog.Logger
}

// NewMongoStore connects to MongoDB and binds the collection for the
// given record kind. An unknown kind is a configuration fault.
func NewMongoStore(ctx context.Context, uri, database, kind string, logger *slog.Logger) (*MongoStore, error) {
	if kind != types.KindNews && kind != types.KindComments {
		return nil, fmt.Errorf("invalid record kind %q: must be %q or %q", kind, types.KindNews, types.KindComments)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(kind),
		kind:   kind,
		logger: logger.With("component", "mongo_storage", "kind", kind),
	}, nil
}

func (s *MongoStore) Name() string { return "mongo" }

// keyQuery translates a record's duplicate key into the stored field
// shape. A nil date participates as nil, so two undated records for one
// URL match each other.
func keyQuery(rec types.Record) bson.M {
	switch r := rec.(type) {
	case *types.ArticleRecord:
		return bson.M{"url": r.URL, "date": r.Date}
	case *types.CommentRecord:
		return bson.M{"news_data.url": r.NewsData.URL, "comment_id": r.CommentID, "date": r.Date}
	default:
		key := rec.Key()
		return bson.M{"url": key.URL, "date": key.Date}
	}
}

func (s *MongoStore) Exists(ctx context.Context, rec types.Record) (bool, error) {
	err := s.coll.FindOne(ctx, keyQuery(rec)).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return true, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	if rec.Kind() != s.kind {
		return "", fmt.Errorf("record kind %q does not match collection %q", rec.Kind(), s.kind)
	}
	rec.StampEntry(time.Now())

	res, err := s.coll.InsertOne(ctx, rec)
	if err != nil {
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

// filterQuery translates the backend-neutral Filter into a Mongo query.
func (s *MongoStore) filterQuery(f Filter) bson.M {
	q := bson.M{}
	if f.Platform != "" {
		q["platform"] = f.Platform
	}
	if f.Query != "" {
		regex := bson.M{"$regex": f.Query, "$options": "i"}
		if s.kind == types.KindComments {
			q["comment"] = regex
		} else {
			q["$or"] = bson.A{
				bson.M{"title": regex},
				bson.M{"abstract": regex},
				bson.M{"body": regex},
			}
		}
	}
	if f.From != nil || f.To != nil {
		dateRange := bson.M{}
		if f.From != nil {
			dateRange["$gte"] = *f.From
		}
		if f.To != nil {
			dateRange["$lte"] = *f.To
		}
		q["date"] = dateRange
	}
	return q
}

func (s *MongoStore) Read(ctx context.Context, f Filter) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		opts := options.Find()
		if f.Limit > 0 {
			opts.SetLimit(f.Limit)
		}

		cursor, err := s.coll.Find(ctx, s.filterQuery(f), opts)
		if err != nil {
			yield(nil, &types.StorageError{Backend: s.Name(), Err: err})
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			rec, err := s.decode(cursor)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(nil, &types.StorageError{Backend: s.Name(), Err: err})
		}
	}
}

func (s *MongoStore) decode(cursor *mongo.Cursor) (types.Record, error) {
	if s.kind == types.KindComments {
		var rec types.CommentRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, &types.StorageError{Backend: s.Name(), Err: err}
		}
		return &rec, nil
	}
	var rec types.ArticleRecord
	if err := cursor.Decode(&rec); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &rec, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}
	res, err := s.coll.UpdateByID(ctx, oid, bson.M{"$set": fields})
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (types.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}

	res := s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid})
	if res.Err() == mongo.ErrNoDocuments {
		return nil, types.ErrNotFound
	}
	if res.Err() != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: res.Err()}
	}

	if s.kind == types.KindComments {
		var rec types.CommentRecord
		if err := res.Decode(&rec); err != nil {
			return nil, &types.StorageError{Backend: s.Name(), Err: err}
		}
		return &rec, nil
	}
	var rec types.ArticleRecord
	if err := res.Decode(&rec); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &rec, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
