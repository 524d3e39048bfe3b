package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/college-erp/internal/core/datamodel/user"
	"github.com/golang-jwt/jwt/v5"
)

// Repository is the user directory the workflow runs against. Implementations
// must exclude soft-deleted users from lookups.
type Repository interface {
	FindByIdentifier(identifier string) (*userDatamodel.User, error)
	Save(u *userDatamodel.User) error
	// UpdateFields persists only the named columns for a user row.
	UpdateFields(userID string, fields map[string]interface{}) error

	// WithLockedUser runs fn holding an exclusive row lock on the user, so
	// concurrent OTP guesses or failure-counter updates for the same account
	// serialize instead of racing the read-modify-write.
	WithLockedUser(identifier string, fn func(locked Repository, u *userDatamodel.User) error) error

	PasswordHistory(userID string, limit int) ([]userDatamodel.PasswordHistory, error)
	AppendPasswordHistory(userID, passwordHash string) error
	TrimPasswordHistory(userID string, keep int) error

	RecordUserHistory(entry UserHistoryEntry) error
}

// UserHistoryEntry is what the workflow hands to the audit sink for user rows.
type UserHistoryEntry struct {
	UserID   string
	Action   string
	ActorRef string
	OldData  map[string]interface{}
	NewData  map[string]interface{}
}

// Notifier delivers the OTP and credential mails out of band.
type Notifier interface {
	Send(to, subject, body string) error
}

var ErrUserNotFound = errors.New("user not found")

// NormalizeIdentifier canonicalizes a login identifier the way user ids are
// stored (upper case, trimmed).
func NormalizeIdentifier(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}

// MaskEmail keeps the first 3 characters of the local part and the domain:
// "john.doe@college.edu" -> "joh*****@college.edu".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 3 {
		return email
	}
	return email[:3] + strings.Repeat("*", at-3) + email[at:]
}

// Claims carry the permission map snapshot resolved at login so authorization
// checks do not need a lookup per request.
type Claims struct {
	UserID      string                      `json:"user_id"`
	Username    string                      `json:"username"`
	IsSuperuser bool                        `json:"is_superuser"`
	Permissions userDatamodel.PermissionMap `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenGenerator creates and validates session tokens.
type TokenGenerator interface {
	GenerateAccessToken(claims SessionClaims) (string, error)
	GenerateRefreshToken(claims SessionClaims) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// SessionClaims is the workflow-side input to token generation.
type SessionClaims struct {
	UserID      string
	Username    string
	IsSuperuser bool
	Permissions userDatamodel.PermissionMap
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(sc SessionClaims) (string, error) {
	return j.sign(sc, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(sc SessionClaims) (string, error) {
	return j.sign(sc, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(sc SessionClaims, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      sc.UserID,
		Username:    sc.Username,
		IsSuperuser: sc.IsSuperuser,
		Permissions: sc.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   sc.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.RefreshTokenSecret)
}

var (
	errTokenInvalid = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

func (j *JWTTokenGenerator) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, errTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errTokenInvalid
}
