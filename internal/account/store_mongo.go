// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// MongoDB implementation of the account [Store].
//
// # Error Mapping
//
// mongo.ErrNoDocuments and duplicate-key errors (code 11000) are mapped to
// domain-friendly [apperr.AppError] types.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/paisa-app/identity/internal/platform/apperr"
)

// accountsCollection is the MongoDB collection backing the account store.
const accountsCollection = "accounts"

// MongoStore implements the [Store] interface using the official mongo-driver.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoDB implementation of the account [Store].
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{collection: database.Collection(accountsCollection)}
}

// accountDocument is the BSON shape of an account record.
type accountDocument struct {
	ID                string     `bson:"_id"`
	Username          string     `bson:"username"`
	Email             string     `bson:"email"`
	PasswordHash      string     `bson:"password_hash"`
	IsVerified        bool       `bson:"is_verified"`
	PendingCode       string     `bson:"pending_code"`
	PendingCodeExpiry *time.Time `bson:"pending_code_expiry,omitempty"`
	OTPVerified       bool       `bson:"otp_verified"`
	TokenVersion      int        `bson:"token_version"`
	ProfilePicture    string     `bson:"profile_picture"`
	DarkMode          bool       `bson:"dark_mode"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

func toDocument(account *Account) accountDocument {
	return accountDocument{
		ID:                account.ID,
		Username:          account.Username,
		Email:             account.Email,
		PasswordHash:      account.PasswordHash,
		IsVerified:        account.IsVerified,
		PendingCode:       account.PendingCode,
		PendingCodeExpiry: account.PendingCodeExpiry,
		OTPVerified:       account.OTPVerified,
		TokenVersion:      account.TokenVersion,
		ProfilePicture:    account.ProfilePicture,
		DarkMode:          account.DarkMode,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
}

func (document accountDocument) toAccount() *Account {
	return &Account{
		ID:                document.ID,
		Username:          document.Username,
		Email:             document.Email,
		PasswordHash:      document.PasswordHash,
		IsVerified:        document.IsVerified,
		PendingCode:       document.PendingCode,
		PendingCodeExpiry: document.PendingCodeExpiry,
		OTPVerified:       document.OTPVerified,
		TokenVersion:      document.TokenVersion,
		ProfilePicture:    document.ProfilePicture,
		DarkMode:          document.DarkMode,
		CreatedAt:         document.CreatedAt,
		UpdatedAt:         document.UpdatedAt,
	}
}

/*
EnsureIndexes creates the unique indexes on email and username.

Description: Called once at startup so uniqueness is enforced at the storage
layer, not just by service-level pre-checks.

Parameters:
  - context: context.Context

Returns:
  - error: Index creation failures
*/
func (store *MongoStore) EnsureIndexes(context context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_email_key"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_username_key"),
		},
	}

	if _, err := store.collection.Indexes().CreateMany(context, indexes); err != nil {
		return fmt.Errorf("mongo_account_store_ensure_indexes_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves an account document by its unique lowercase email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *MongoStore) FindByEmail(context context.Context, email string) (*Account, error) {
	return store.findOne(context, bson.M{"email": email})
}

/*
FindByID retrieves an account document by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *MongoStore) FindByID(context context.Context, id string) (*Account, error) {
	return store.findOne(context, bson.M{"_id": id})
}

/*
Create inserts a new account document.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: Uniqueness conflicts or connectivity errors
*/
func (store *MongoStore) Create(context context.Context, account *Account) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	if _, err := store.collection.InsertOne(context, toDocument(account)); err != nil {
		if conflict := mapDuplicateKey(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("mongo_account_store_create_failed: %w", err)
	}

	return nil
}

/*
Save replaces every mutable field of an existing account document.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: apperr.NotFound, uniqueness conflicts, or update failures
*/
func (store *MongoStore) Save(context context.Context, account *Account) error {
	account.UpdatedAt = time.Now()
	document := toDocument(account)

	update := bson.M{"$set": bson.M{
		"username":            document.Username,
		"password_hash":       document.PasswordHash,
		"is_verified":         document.IsVerified,
		"pending_code":        document.PendingCode,
		"pending_code_expiry": document.PendingCodeExpiry,
		"otp_verified":        document.OTPVerified,
		"token_version":       document.TokenVersion,
		"profile_picture":     document.ProfilePicture,
		"dark_mode":           document.DarkMode,
		"updated_at":          document.UpdatedAt,
	}}

	result, err := store.collection.UpdateByID(context, account.ID, update)
	if err != nil {
		if conflict := mapDuplicateKey(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("mongo_account_store_save_failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
UpdateFields applies a partial update built from the non-nil [Patch] fields.

Parameters:
  - context: context.Context
  - id: string
  - patch: Patch

Returns:
  - error: apperr.NotFound or persistence failures
*/
func (store *MongoStore) UpdateFields(context context.Context, id string, patch Patch) error {
	set := bson.M{}
	unset := bson.M{}

	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}
	if patch.IsVerified != nil {
		set["is_verified"] = *patch.IsVerified
	}
	if patch.PendingCode != nil {
		set["pending_code"] = *patch.PendingCode
	}
	if patch.PendingCodeExpiry != nil {
		set["pending_code_expiry"] = *patch.PendingCodeExpiry
	}
	if patch.ClearPendingCodeExpiry {
		unset["pending_code_expiry"] = ""
	}
	if patch.OTPVerified != nil {
		set["otp_verified"] = *patch.OTPVerified
	}
	if patch.TokenVersion != nil {
		set["token_version"] = *patch.TokenVersion
	}

	if len(set) == 0 && len(unset) == 0 {
		return nil
	}
	set["updated_at"] = time.Now()

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := store.collection.UpdateByID(context, id, update)
	if err != nil {
		if conflict := mapDuplicateKey(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("mongo_account_store_update_fields_failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// Ping verifies that the backing MongoDB deployment is reachable.
func (store *MongoStore) Ping(context context.Context) error {
	return store.collection.Database().Client().Ping(context, readpref.Primary())
}

// findOne executes a single-document query and hydrates an [Account].
func (store *MongoStore) findOne(context context.Context, filter bson.M) (*Account, error) {
	document := accountDocument{}
	err := store.collection.FindOne(context, filter).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("mongo_account_store_find_failed: %w", err)
	}
	return document.toAccount(), nil
}

// mapDuplicateKey classifies duplicate-key errors into the taxonomy, or
// returns nil if err is not one.
func mapDuplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	message := err.Error()
	switch {
	case strings.Contains(message, "accounts_email_key"):
		return apperr.AlreadyRegistered()
	case strings.Contains(message, "accounts_username_key"):
		return apperr.ValidationError("Username is already taken")
	default:
		return apperr.ValidationError("Account already exists")
	}
}
