// Package auth authenticates parents. Passwords are stored as bcrypt hashes
// and sessions are stateless HS256 JWTs whose subject is the parent ID.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

const issuer = "go-parental-backend"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, forged, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotOwner is returned when a parent addresses another parent's child.
	ErrNotOwner = errors.New("child belongs to another parent")
	// ErrChildNotFound is returned when the child does not exist.
	ErrChildNotFound = errors.New("child not found")
)

// Used to keep unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Authenticator verifies parent credentials and tokens.
type Authenticator struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
	Clock  clock.Clock
}

// NewAuthenticator wires an Authenticator. A zero ttl defaults to 24h.
func NewAuthenticator(db *gorm.DB, secret string, ttl time.Duration, clk clock.Clock) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{DB: db, Secret: []byte(secret), TTL: ttl, Clock: clk}
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ParentID    string    `json:"parent_id"`
}

// Login checks email and password and issues a token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Token, error) {
	p, err := repo.GetParentByEmail(ctx, a.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return a.Issue(p.ID)
}

// Issue signs a token for parentID.
func (a *Authenticator) Issue(parentID string) (*Token, error) {
	now := a.Clock.Now()
	exp := now.Add(a.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   parentID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: exp.UTC(), ParentID: parentID}, nil
}

// ParseToken validates a token and returns the parent ID it was issued for.
func (a *Authenticator) ParseToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.Clock.Now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// VerifyPassword re-authenticates a parent who already holds a token.
func (a *Authenticator) VerifyPassword(ctx context.Context, parentID, password string) error {
	p, err := repo.GetParent(ctx, a.DB, parentID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthorizeChild checks that childID exists and belongs to parentID.
func (a *Authenticator) AuthorizeChild(ctx context.Context, parentID, childID string) error {
	c, err := repo.GetChild(ctx, a.DB, childID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrChildNotFound
	}
	if err != nil {
		return err
	}
	if c.ParentID != parentID {
		return ErrNotOwner
	}
	return nil
}
