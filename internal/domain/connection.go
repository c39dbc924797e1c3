package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection errors
var (
	ErrConnectionNotFound   = errors.New("store connection not found")
	ErrShopDomainTaken      = errors.New("shop domain is already connected to another client")
	ErrMissingShopDomain    = errors.New("shopDomain is required")
	ErrMissingAccessToken   = errors.New("accessToken is required")
	ErrOAuthStateNotFound   = errors.New("oauth state not found or expired")
	ErrOAuthStateMismatch   = errors.New("oauth state does not match")
	ErrConnectionInactive   = errors.New("store connection is inactive")
)

// StoreConnection binds a client to one platform store. shop_domain is
// globally unique across clients: a collision is rejected, never silently
// overwritten, to prevent cross-tenant token takeover.
type StoreConnection struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID    string             `bson:"clientId" json:"clientId"`
	ShopDomain  string             `bson:"shopDomain" json:"shopDomain"`
	AccessToken string             `bson:"accessToken" json:"-"`
	Scope       string             `bson:"scope,omitempty" json:"scope,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	ConnectedAt time.Time          `bson:"connectedAt" json:"connectedAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewStoreConnection creates an active store connection
func NewStoreConnection(clientID, shopDomain, accessToken, scope string) (*StoreConnection, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if shopDomain == "" {
		return nil, ErrMissingShopDomain
	}
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	now := time.Now().UTC()
	return &StoreConnection{
		ID:          primitive.NewObjectID(),
		ClientID:    clientID,
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		Scope:       scope,
		IsActive:    true,
		ConnectedAt: now,
		UpdatedAt:   now,
	}, nil
}

// Deactivate disables the connection without deleting the row
func (c *StoreConnection) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
}

// OAuthState is a one-shot nonce for an in-flight OAuth authorization.
// Rows expire via TTL; consuming a state deletes it.
type OAuthState struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	State     string             `bson:"state" json:"state"`
	ClientID  string             `bson:"clientId" json:"clientId"`
	ShopDomain string            `bson:"shopDomain,omitempty" json:"shopDomain,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
}

// NewOAuthState creates a state nonce valid for the given lifetime
func NewOAuthState(clientID, shopDomain string, ttl time.Duration) (*OAuthState, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}

	now := time.Now().UTC()
	return &OAuthState{
		ID:         primitive.NewObjectID(),
		State:      uuid.New().String(),
		ClientID:   clientID,
		ShopDomain: shopDomain,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsExpired reports whether the nonce has lapsed
func (s *OAuthState) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}
