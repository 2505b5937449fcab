package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountTier is flipped to paid by the checkout webhook
type AccountTier string

const (
	TierFree AccountTier = "free"
	TierPaid AccountTier = "paid"
)

// User is an account that owns questionnaires
type User struct {
	ID           string      `json:"id" bson:"_id,omitempty"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"passwordHash"`
	Tier         AccountTier `json:"tier" bson:"tier"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
}

// UserClaims are JWT claims for an authenticated user
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Credentials is the request body for register and login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful register or login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
