package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims - поля JWT, по которым движок узнает игрока.
type Claims struct {
	PlayerID uuid.UUID `json:"player_id"`
	Roles    []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
