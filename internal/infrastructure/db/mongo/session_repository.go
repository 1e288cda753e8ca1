package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

const (
	sessionCollection = "sessions"

	// DefaultSessionRetention is how long an entry is kept after its expiry
	// before the TTL monitor removes it.
	DefaultSessionRetention = 7 * 24 * time.Hour
)

// SessionRepository stores ledger entries keyed by token hash. Raw tokens
// are never written.
type SessionRepository struct {
	coll      *mongo.Collection
	retention time.Duration
}

func NewSessionRepository(db *mongo.Database, retention time.Duration) *SessionRepository {
	if retention <= 0 {
		retention = DefaultSessionRetention
	}
	return &SessionRepository{coll: db.Collection(sessionCollection), retention: retention}
}

type mongoSession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	IdentityID string             `bson:"identity_id"`
	TokenHash  string             `bson:"token_hash"`
	Purpose    string             `bson:"purpose"`
	Valid      bool               `bson:"valid"`
	ExpiresAt  time.Time          `bson:"expires_at"`
	CreatedAt  time.Time          `bson:"created_at"`
	RevokedAt  *time.Time         `bson:"revoked_at,omitempty"`
}

func (m mongoSession) toDomain() *domain.Session {
	s := &domain.Session{
		ID:         m.ID.Hex(),
		IdentityID: m.IdentityID,
		TokenHash:  m.TokenHash,
		Purpose:    domain.Purpose(m.Purpose),
		Valid:      m.Valid,
		ExpiresAt:  m.ExpiresAt.UTC(),
		CreatedAt:  m.CreatedAt.UTC(),
	}
	if m.RevokedAt != nil {
		at := m.RevokedAt.UTC()
		s.RevokedAt = &at
	}
	return s
}

// EnsureIndexes creates the unique hash index, the per-identity lookup index
// and the retention TTL index on expires_at.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "identity_id", Value: 1}, {Key: "purpose", Value: 1}, {Key: "valid", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.retention.Seconds())),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSession{
		IdentityID: s.IdentityID,
		TokenHash:  s.TokenHash,
		Purpose:    string(s.Purpose),
		Valid:      s.Valid,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		RevokedAt:  s.RevokedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid.Hex()
	}
	return nil
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": hash}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return doc.toDomain(), nil
}

// Invalidate flips a valid entry to invalid. The valid filter makes the
// update conditional, so only one of several concurrent callers sees true.
func (r *SessionRepository) Invalidate(ctx context.Context, hash string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"token_hash": hash, "valid": true},
		bson.M{"$set": bson.M{"valid": false, "revoked_at": at}},
	)
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *SessionRepository) FindActive(ctx context.Context, identityID string, purpose domain.Purpose, now time.Time) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"identity_id": identityID,
		"purpose":     string(purpose),
		"valid":       true,
		"expires_at":  bson.M{"$gt": now},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find active sessions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoSession
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	out := make([]*domain.Session, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
