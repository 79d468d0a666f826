package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type UsersRepo struct {
	col *mongo.Collection
	obs *observability.Prom
}

func NewUsersRepo(db *mongo.Database, obs *observability.Prom) *UsersRepo {
	return &UsersRepo{
		col: db.Collection(usersCollection),
		obs: obs,
	}
}

// EnsureIndexes creates the uniqueness guards behind ErrDuplicate. Partial
// filters keep documents without an email (or without a mobile) out of the
// unique constraint.
func (r *UsersRepo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("idx_user_id").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("idx_email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "email", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
		{
			Keys: bson.D{
				{Key: "country_code", Value: 1},
				{Key: "mobile", Value: 1},
			},
			Options: options.Index().
				SetName("idx_mobile_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "mobile", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	}

	for _, m := range models {
		if _, err := r.col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return r.obs.ObserveStore("users.create", func() error {
		_, err := r.col.InsertOne(ctx, u)

		if mongo.IsDuplicateKeyError(err) {
			return user.ErrDuplicate
		}

		return err
	})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": email})
}

func (r *UsersRepo) GetByMobile(ctx context.Context, countryCode, mobile string) (user.User, error) {
	// mobile lookups always include the country code
	return r.findOne(ctx, "users.get_by_mobile", bson.M{"country_code": countryCode, "mobile": mobile})
}

func (r *UsersRepo) GetByID(ctx context.Context, userID string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.M{"user_id": userID})
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var u user.User

	err := r.obs.ObserveStore(op, func() error {
		err := r.col.FindOne(ctx, filter).Decode(&u)

		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.ErrNotFound
		}

		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// UpdateProfile applies the already allow-listed field set and returns the
// updated document.
func (r *UsersRepo) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (user.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	for k, v := range fields {
		set[k] = v
	}

	var u user.User

	err := r.obs.ObserveStore("users.update_profile", func() error {
		after := options.After

		err := r.col.FindOneAndUpdate(
			ctx,
			bson.M{"user_id": userID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(after),
		).Decode(&u)

		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.ErrNotFound
		}

		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) SetPassword(ctx context.Context, userID, passwordHash string) error {
	return r.obs.ObserveStore("users.set_password", func() error {
		res, err := r.col.UpdateOne(
			ctx,
			bson.M{"user_id": userID},
			bson.M{"$set": bson.M{
				"password_hash": passwordHash,
				"password_set":  true,
				"updated_at":    time.Now().UTC(),
			}},
		)

		if err != nil {
			return err
		}

		if res.MatchedCount == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

// Delete removes the document outright. A second delete of the same id
// reports ErrNotFound.
func (r *UsersRepo) Delete(ctx context.Context, userID string) error {
	return r.obs.ObserveStore("users.delete", func() error {
		res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})

		if err != nil {
			return err
		}

		if res.DeletedCount == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}
