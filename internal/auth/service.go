package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-yatube/internal/db"
	"backend-yatube/internal/shared/apperr"
	"backend-yatube/internal/shared/request"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	tokenIssuer = "yatube"
	userColumns = `id, email, username, password_hash, full_name, avatar_url, created_at, updated_at`
)

var (
	errInvalidCredentials = fmt.Errorf("%w: wrong username or password", apperr.ErrUnauthorized)
	errTokenInvalid       = fmt.Errorf("%w: token invalid", apperr.ErrUnauthorized)
	errRefreshInvalid     = fmt.Errorf("%w: refresh token invalid", apperr.ErrUnauthorized)
)

// Swappable in tests.
var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
	signTokenFn       = (*Service).signToken
)

// Claims identify the author a token was issued to.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	db     db.Querier
}

func NewService(secret string, q db.Querier) *Service {
	return &Service{secret: []byte(secret), db: q}
}

// Register creates an account and issues its first token pair. A taken
// email or username is reported as apperr.ErrConflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	if err := request.Validate(req); err != nil {
		return User{}, TokenResponse{}, err
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		AvatarURL:    req.AvatarURL,
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, full_name, avatar_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Username, u.PasswordHash, u.FullName, u.AvatarURL).Scan(&u.CreatedAt, &u.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err):
		return User{}, TokenResponse{}, fmt.Errorf("%w: email or username already registered", apperr.ErrConflict)
	case err != nil:
		return User{}, TokenResponse{}, err
	}

	return s.withTokens(ctx, u)
}

// Login checks a username and password pair. Unknown users and wrong
// passwords fail the same way.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	u, err := s.byUsername(ctx, req.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, TokenResponse{}, errInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return User{}, TokenResponse{}, errInvalidCredentials
	}
	return s.withTokens(ctx, u)
}

func (s *Service) byUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Service) withTokens(ctx context.Context, u User) (User, TokenResponse, error) {
	tokens, err := s.GenerateTokens(ctx, u.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return u, tokens, nil
}

// GenerateTokens signs an access and refresh pair for userID and stores the
// refresh token so it can be checked and revoked later.
func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	var pair [2]string
	for i, ttl := range []time.Duration{accessTokenTTL, refreshTokenTTL} {
		signed, err := signTokenFn(s, userID, ttl)
		if err != nil {
			return TokenResponse{}, err
		}
		pair[i] = signed
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, pair[1], time.Now().Add(refreshTokenTTL))
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  pair[0],
		RefreshToken: pair[1],
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL / time.Second),
	}, nil
}

// ValidateRefreshToken accepts a refresh token only while it is signed by
// us, stored for the same user, unrevoked and unexpired.
func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := parseClaims(token, s.secret)
	if err != nil {
		return "", err
	}

	var owner string
	var expiresAt time.Time
	err = s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token).Scan(&owner, &expiresAt)
	if err != nil || owner != claims.UserID || !time.Now().Before(expiresAt) {
		return "", errRefreshInvalid
	}
	return owner, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) signToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	return parseClaims(token, s.secret)
}

func parseClaims(token string, secret []byte) (*Claims, error) {
	keyFn := func(*jwt.Token) (any, error) { return secret, nil }
	parsed, err := parseWithClaimsFn(token, &Claims{}, keyFn, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, errTokenInvalid
}
