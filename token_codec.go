package account

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// EmailConfirmAudience scopes confirmation tokens so they can not be
// replayed against other token consumers sharing the signing key
const EmailConfirmAudience = "account:email-confirm"

// DefaultConfirmTokenMaxAge is the lifetime of a confirmation link
const DefaultConfirmTokenMaxAge = 24 * time.Hour

// TokenCodec turns a user id into a signed, expiring, URL safe token and back
type TokenCodec struct {
	users      UserFinder
	signingKey []byte
	maxAge     time.Duration
	issuer     string
	logger     Logger
	now        func() time.Time
}

// TokenCodecOption configures a TokenCodec
type TokenCodecOption func(*TokenCodec)

// WithClock replaces the time source
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTokenLogger sets the codec logger
func WithTokenLogger(logger Logger) TokenCodecOption {
	return func(c *TokenCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewTokenCodec creates a codec. A zero maxAge falls back to DefaultConfirmTokenMaxAge.
func NewTokenCodec(users UserFinder, signingKey []byte, maxAge time.Duration, issuer string, opts ...TokenCodecOption) *TokenCodec {
	if users == nil {
		panic("token codec requires a user finder")
	}

	if len(signingKey) == 0 {
		panic("token codec requires a signing key")
	}

	if maxAge <= 0 {
		maxAge = DefaultConfirmTokenMaxAge
	}

	c := &TokenCodec{
		users:      users,
		signingKey: signingKey,
		maxAge:     maxAge,
		issuer:     issuer,
		logger:     defaultLogger(),
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// MaxAge returns the token lifetime
func (c *TokenCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode signs a token carrying the user id
func (c *TokenCodec) Encode(userID uuid.UUID) (string, error) {
	now := c.now().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{EmailConfirmAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign confirmation token")
	}
	return signed, nil
}

// Decode resolves a token to its user.
//
//   - valid and not expired: (user, true)
//   - valid signature but expired: (user, false)
//   - anything else, including unknown users: (nil, false)
func (c *TokenCodec) Decode(ctx context.Context, token string) (*User, bool) {
	claims, err := c.parse(token,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(EmailConfirmAudience),
	)

	fresh := err == nil
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			c.logger.Debug("confirmation token rejected", "error", err)
			return nil, false
		}

		claims, err = c.parse(token, jwt.WithoutClaimsValidation())
		if err != nil {
			c.logger.Debug("expired confirmation token rejected", "error", err)
			return nil, false
		}

		if !slices.Contains(claims.Audience, EmailConfirmAudience) || claims.Issuer != c.issuer {
			return nil, false
		}
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, false
	}

	user, err := c.users.GetByID(ctx, id)
	if err != nil || user == nil {
		if err != nil && !goerrors.IsNotFound(err) {
			c.logger.Error("confirmation token user lookup failed", "user", id, "error", err)
		}
		return nil, false
	}

	return user, fresh
}

func (c *TokenCodec) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
