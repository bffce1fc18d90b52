package service

import (
	"context"
	"strings"
	"time"

	"wavechat/module/message/model"
	"wavechat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateParams is the persisted shape of a new message before defaults.
type CreateParams struct {
	Sender      primitive.ObjectID
	Receiver    *primitive.ObjectID
	Room        string
	Content     string
	Type        string
	Attachments []model.Attachment
}

// Normalize trims content, applies room/type defaults and validates
// bounds. Pure so the pipeline and the REST handler share it.
func (p *CreateParams) Normalize() error {
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" {
		return errs.ErrEmptyContent
	}
	if len(p.Content) > model.MaxContentLength {
		return errs.ErrValidation.WithDetail("message cannot exceed 2000 characters")
	}
	p.Room = strings.TrimSpace(p.Room)
	if p.Room == "" {
		p.Room = model.DefaultRoom
	}
	if p.Type == "" {
		p.Type = model.TypeText
	}
	if !model.ValidType(p.Type) {
		return errs.ErrValidation.WithDetail("unknown message type " + p.Type)
	}
	return nil
}

type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) coll() *mongo.Collection {
	return s.db.Collection(model.CollectionName)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_deleted", Value: 1}}},
	})
	return errors.Wrap(err, "create message indexes")
}

func (s *Store) Create(ctx context.Context, p CreateParams) (*model.Message, error) {
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	now := time.Now()
	m := &model.Message{
		Sender:      p.Sender,
		Receiver:    p.Receiver,
		Room:        p.Room,
		Content:     p.Content,
		Type:        p.Type,
		Attachments: p.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.coll().InsertOne(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	var m model.Message
	err := s.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find message")
	}
	return &m, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, limit, skip int64) ([]*model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)
	cur, err := s.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer cur.Close(ctx)

	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	// newest-first from the index, flipped to chronological for clients
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// RoomHistory lists non-deleted room messages, oldest first.
func (s *Store) RoomHistory(ctx context.Context, room string, limit, skip int64) ([]*model.Message, error) {
	return s.find(ctx, bson.M{
		"room":       room,
		"receiver":   nil,
		"is_deleted": false,
	}, limit, skip)
}

// DirectHistory lists the private conversation between two users.
func (s *Store) DirectHistory(ctx context.Context, a, b primitive.ObjectID, limit, skip int64) ([]*model.Message, error) {
	return s.find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"sender": a, "receiver": b},
			bson.M{"sender": b, "receiver": a},
		},
		"is_deleted": false,
	}, limit, skip)
}

// UserHistory lists everything the user sent or received.
func (s *Store) UserHistory(ctx context.Context, u primitive.ObjectID, limit, skip int64) ([]*model.Message, error) {
	return s.find(ctx, bson.M{
		"$or":        bson.A{bson.M{"sender": u}, bson.M{"receiver": u}},
		"is_deleted": false,
	}, limit, skip)
}

func (s *Store) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := s.coll().UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now, "updated_at": now}},
	)
	if err != nil {
		return errors.Wrap(err, "mark message read")
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) Edit(ctx context.Context, id primitive.ObjectID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ErrEmptyContent
	}
	if len(content) > model.MaxContentLength {
		return nil, errs.ErrValidation.WithDetail("message cannot exceed 2000 characters")
	}
	now := time.Now()
	after := options.After
	res := s.coll().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"content": content, "is_edited": true, "edited_at": now, "updated_at": now}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	)
	var m model.Message
	if err := res.Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.ErrNotFound
		}
		return nil, errors.Wrap(err, "edit message")
	}
	return &m, nil
}

// SoftDelete keeps the document but hides it from every query.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := s.coll().UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": now, "updated_at": now}},
	)
	if err != nil {
		return errors.Wrap(err, "soft delete message")
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}
