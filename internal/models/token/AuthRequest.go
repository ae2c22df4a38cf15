package token

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthRequest holds the OAuth tokens minted for a partner. The request key is
// recorded when the token dance begins; the encoded access key is filled in once
// the exchange completes.
type AuthRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	PartnerID         string             `bson:"partner_id"`
	UserID            int64              `bson:"user_id,omitempty"`
	UserName          string             `bson:"user_name,omitempty"`
	RequestKey        string             `bson:"request_key,omitempty"`
	RequestKeyEncoded string             `bson:"request_key_encoded,omitempty"`
	AccessKeyEncoded  string             `bson:"access_key_encoded,omitempty"`
	CreateDate        time.Time          `bson:"create_date"`
}

// Authorized reports whether the request has completed the token exchange.
func (r *AuthRequest) Authorized() bool {
	return r.AccessKeyEncoded != ""
}
