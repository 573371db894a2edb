package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the chat service.
// It includes standard claims required by the JWT specification and the custom claims
// necessary for identifying users across the REST API and the WebSocket gateway.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Username is the unique, immutable identity key of the account. Channel
	// membership, moderation lists, and message authorship all reference it.
	Username string `json:"username"`
}
