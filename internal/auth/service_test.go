package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-yatube/internal/shared/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

const (
	insertUserSQL    = `INSERT INTO users`
	selectUserSQL    = `SELECT id, email, username, password_hash, full_name, avatar_url, created_at, updated_at\s+FROM users WHERE username = \$1`
	insertRefreshSQL = `INSERT INTO refresh_tokens`
	lookupRefreshSQL = `SELECT user_id, expires_at`
)

var userRowColumns = []string{"id", "email", "username", "password_hash", "full_name", "avatar_url", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectUser(mock pgxmock.PgxPoolIface, username, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now()
	mock.ExpectQuery(selectUserSQL).
		WithArgs(username).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("user-1", username+"@example.com", username, string(hash), "", "", now, now))
}

func expectRefreshSaved(mock pgxmock.PgxPoolIface, userID any) {
	mock.ExpectExec(insertRefreshSQL).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func validRegistration() RegisterRequest {
	return RegisterRequest{Email: "leo@example.com", Username: "leo", Password: "password123", FullName: "Leo Tolstoy"}
}

func TestRegisterAndLogin(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(insertUserSQL).
		WithArgs(pgxmock.AnyArg(), "leo@example.com", "leo", pgxmock.AnyArg(), "Leo Tolstoy", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	expectRefreshSaved(mock, pgxmock.AnyArg())

	svc := NewService("test-secret", mock)
	user, tokens, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected user and tokens")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")) != nil {
		t.Fatalf("expected stored hash to match password")
	}

	expectUser(mock, "leo", "password123")
	expectRefreshSaved(mock, "user-1")

	_, loginTokens, err := svc.Login(context.Background(), LoginRequest{Username: "leo", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginTokens.TokenType != "Bearer" || loginTokens.ExpiresIn != int64(accessTokenTTL.Seconds()) {
		t.Fatalf("unexpected token response: %+v", loginTokens)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterFailures(t *testing.T) {
	cases := []struct {
		name  string
		req   RegisterRequest
		dbErr error
		want  error
	}{
		{name: "missing email", req: RegisterRequest{Username: "leo", Password: "p"}, want: apperr.ErrValidation},
		{name: "missing password", req: RegisterRequest{Email: "leo@example.com", Username: "leo"}, want: apperr.ErrValidation},
		{name: "slash in username", req: RegisterRequest{Email: "leo@example.com", Username: "le/o", Password: "p"}, want: apperr.ErrValidation},
		{name: "taken", req: validRegistration(), dbErr: &pgconn.PgError{Code: "23505"}, want: apperr.ErrConflict},
		{name: "db down", req: validRegistration(), dbErr: errDB, want: errDB},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			if tc.dbErr != nil {
				mock.ExpectQuery(insertUserSQL).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(tc.dbErr)
			}

			_, _, err := NewService("test-secret", mock).Register(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRegisterHashError(t *testing.T) {
	oldHash := hashPasswordFn
	hashPasswordFn = func(_ []byte, _ int) ([]byte, error) {
		return nil, errDB
	}
	defer func() { hashPasswordFn = oldHash }()

	_, _, err := NewService("test-secret", nil).Register(context.Background(), validRegistration())
	if !errors.Is(err, errDB) {
		t.Fatalf("expected hash error, got %v", err)
	}
}

func TestRegisterGenerateTokensError(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(insertUserSQL).
		WithArgs(pgxmock.AnyArg(), "leo@example.com", "leo", pgxmock.AnyArg(), "Leo Tolstoy", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(insertRefreshSQL).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errDB)

	if _, _, err := NewService("test-secret", mock).Register(context.Background(), validRegistration()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoginFailures(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		mock := newMock(t)
		expectUser(mock, "leo", "correct")

		_, _, err := NewService("test-secret", mock).Login(context.Background(), LoginRequest{Username: "leo", Password: "wrong"})
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(selectUserSQL).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, _, err := NewService("test-secret", mock).Login(context.Background(), LoginRequest{Username: "ghost", Password: "x"})
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(selectUserSQL).WithArgs("leo").WillReturnError(errDB)

		_, _, err := NewService("test-secret", mock).Login(context.Background(), LoginRequest{Username: "leo", Password: "x"})
		if !errors.Is(err, errDB) {
			t.Fatalf("expected db error, got %v", err)
		}
	})

	t.Run("token save error", func(t *testing.T) {
		mock := newMock(t)
		expectUser(mock, "leo", "pass")
		mock.ExpectExec(insertRefreshSQL).
			WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errDB)

		if _, _, err := NewService("test-secret", mock).Login(context.Background(), LoginRequest{Username: "leo", Password: "pass"}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestValidateRefreshToken(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	expectRefreshSaved(mock, "user-1")
	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	mock.ExpectQuery(lookupRefreshSQL).
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-1", time.Now().Add(5*time.Minute)))

	userID, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("validate refresh: %q %v", userID, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateRefreshTokenRejected(t *testing.T) {
	cases := []struct {
		name   string
		rows   *pgxmock.Rows
		dbErr  error
		userID string
	}{
		{name: "expired", rows: pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-2", time.Now().Add(-time.Minute))},
		{name: "other user", rows: pgxmock.NewRows([]string{"user_id", "expires_at"}).AddRow("user-9", time.Now().Add(time.Minute))},
		{name: "revoked or missing", dbErr: pgx.ErrNoRows},
		{name: "lookup error", dbErr: errDB},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			svc := NewService("test-secret", mock)
			token, err := svc.signToken("user-2", refreshTokenTTL)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}

			q := mock.ExpectQuery(lookupRefreshSQL).WithArgs(token)
			if tc.dbErr != nil {
				q.WillReturnError(tc.dbErr)
			} else {
				q.WillReturnRows(tc.rows)
			}

			_, err = svc.ValidateRefreshToken(context.Background(), token)
			if !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestGenerateTokensSignErrors(t *testing.T) {
	for failOn := 1; failOn <= 2; failOn++ {
		oldSign := signTokenFn
		call := 0
		signTokenFn = func(_ *Service, _ string, _ time.Duration) (string, error) {
			call++
			if call == failOn {
				return "", errDB
			}
			return "token", nil
		}

		_, err := NewService("test-secret", nil).GenerateTokens(context.Background(), "user-1")
		signTokenFn = oldSign
		if !errors.Is(err, errDB) {
			t.Fatalf("sign call %d: expected error, got %v", failOn, err)
		}
	}
}

func TestGenerateTokensSaveRefreshError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(insertRefreshSQL).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errDB)

	if _, err := NewService("test-secret", mock).GenerateTokens(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSignedTokensAreDistinct(t *testing.T) {
	svc := NewService("test-secret", nil)
	a, _ := svc.signToken("user-1", accessTokenTTL)
	b, _ := svc.signToken("user-1", accessTokenTTL)
	if a == "" || a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestParseTokenInvalid(t *testing.T) {
	oldParse := parseWithClaimsFn
	parseWithClaimsFn = func(_ string, _ jwt.Claims, _ jwt.Keyfunc, _ ...jwt.ParserOption) (*jwt.Token, error) {
		return &jwt.Token{Valid: false, Claims: &Claims{}}, nil
	}
	defer func() { parseWithClaimsFn = oldParse }()

	if _, err := NewService("test-secret", nil).parseToken("token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestValidateAccessToken(t *testing.T) {
	svc := NewService("test-secret", nil)
	if _, err := svc.ValidateAccessToken("invalid-token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	token, _ := svc.signToken("user-1", accessTokenTTL)
	if id, err := svc.ValidateAccessToken(token); err != nil || id != "user-1" {
		t.Fatalf("expected user-1, got %q %v", id, err)
	}

	expired, _ := svc.signToken("user-1", -time.Minute)
	if _, err := svc.ValidateAccessToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

var errDB = errors.New("db error")
