package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"wavechat/logger"
	"wavechat/module/user/model"
	"wavechat/service/storage"
	"wavechat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Store owns the users collection plus the Redis read-through cache for
// public profiles.
type Store struct {
	db    *mongo.Database
	cache *storage.UserCache
}

func NewStore(db *mongo.Database, cache *storage.UserCache) *Store {
	return &Store{db: db, cache: cache}
}

func (s *Store) coll() *mongo.Collection {
	return s.db.Collection(model.CollectionName)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	_, err := s.coll().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	return errors.Wrap(err, "create user indexes")
}

// Create registers a new user with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < model.UsernameMinLen || len(username) > model.UsernameMaxLen {
		return nil, errs.ErrValidation.WithDetail("username must be 3-30 characters")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.ErrValidation.WithDetail("invalid email")
	}
	if len(password) < model.PasswordMinLen {
		return nil, errs.ErrValidation.WithDetail("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	now := time.Now()
	u := &model.User{
		Username:  username,
		Email:     email,
		Password:  string(hash),
		Status:    model.StatusOffline,
		LastSeen:  now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.coll().InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.ErrDuplicate.WithDetail("username or email already taken")
		}
		return nil, errors.Wrap(err, "insert user")
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return u, nil
}

// FindByID returns (nil, nil) when the id is unknown.
func (s *Store) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var u model.User
	err = s.coll().FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &u, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := s.coll().FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": strings.TrimSpace(username)})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

// Authenticate resolves login (username or email) and checks the password.
func (s *Store) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	var u *model.User
	var err error
	if strings.Contains(login, "@") {
		u, err = s.FindByEmail(ctx, login)
	} else {
		u, err = s.FindByUsername(ctx, login)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.ErrUserNotFound
	}
	if !u.IsActive {
		return nil, errs.ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, errs.ErrTokenInvalid.WithDetail("wrong credentials")
	}
	return u, nil
}

// SetStatus is the Presence Registry's durable status write. The cached
// public profile is invalidated so enrichment sees the new status.
func (s *Store) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrValidation.WithDetail("bad user id")
	}
	_, err = s.coll().UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "last_seen": at, "updated_at": at}},
	)
	if err != nil {
		return errors.Wrap(err, "update user status")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// PublicByID resolves the wire-safe profile, trying the cache first.
// Returns (nil, nil) for unknown users.
func (s *Store) PublicByID(ctx context.Context, id string) (*model.PublicUser, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, id); ok {
			var p model.PublicUser
			if err := json.Unmarshal(b, &p); err == nil {
				return &p, nil
			}
			logger.Debug("user cache entry corrupt, refetching id=" + id)
		}
	}

	u, err := s.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	p := u.Public()
	if s.cache != nil {
		if b, err := json.Marshal(p); err == nil {
			s.cache.Set(ctx, id, b)
		}
	}
	return p, nil
}
