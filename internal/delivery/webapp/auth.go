package webapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errInitDataInvalid = errors.New("init data signature mismatch")
	errInitDataExpired = errors.New("init data expired")
	errUnauthorized    = errors.New("unauthorized")
)

// TelegramUser is the "user" object signed into WebApp init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// VerifyInitData checks the WebApp init data hash against the bot token and
// returns the signed user. maxAge <= 0 disables the age check.
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) (TelegramUser, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse init data: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return TelegramUser{}, errInitDataInvalid
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + values.Get(k)
	}

	want := signInitData(strings.Join(pairs, "\n"), botToken)
	got, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(got, want) {
		return TelegramUser{}, errInitDataInvalid
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return TelegramUser{}, errInitDataInvalid
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return TelegramUser{}, errInitDataExpired
		}
	}

	var u TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &u); err != nil || u.ID == 0 {
		return TelegramUser{}, errInitDataInvalid
	}
	return u, nil
}

// signInitData secret = HMAC("WebAppData", token), hash = HMAC(secret, data)
func signInitData(dataCheck, botToken string) []byte {
	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))
	mac := hmac.New(sha256.New, key.Sum(nil))
	mac.Write([]byte(dataCheck))
	return mac.Sum(nil)
}

// Claims is the storefront session token.
type Claims struct {
	TelegramID int64 `json:"tg"`
	Operator   bool  `json:"op,omitempty"`
	jwt.RegisteredClaims
}

// AuthConfig holds what the authenticator needs from config.
type AuthConfig struct {
	BotToken       string
	InitDataMaxAge time.Duration
	Secret         string
	Issuer         string
	TTL            time.Duration
	Operators      []int64
}

// Authenticator exchanges init data for JWTs and parses them back.
type Authenticator struct {
	cfg       AuthConfig
	operators map[int64]struct{}
	now       func() time.Time
}

func NewAuthenticator(cfg AuthConfig, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	ops := make(map[int64]struct{}, len(cfg.Operators))
	for _, id := range cfg.Operators {
		ops[id] = struct{}{}
	}
	return &Authenticator{cfg: cfg, operators: ops, now: now}
}

func (a *Authenticator) isOperator(id int64) bool {
	_, ok := a.operators[id]
	return ok
}

// Exchange verifies init data and mints a token for its user.
func (a *Authenticator) Exchange(initData string) (string, Claims, error) {
	u, err := VerifyInitData(initData, a.cfg.BotToken, a.cfg.InitDataMaxAge, a.now())
	if err != nil {
		return "", Claims{}, err
	}
	return a.Mint(u.ID)
}

// Mint signs a token for telegramID; the operator flag comes from config.
func (a *Authenticator) Mint(telegramID int64) (string, Claims, error) {
	if a.cfg.Secret == "" {
		return "", Claims{}, errors.New("jwt secret is required")
	}
	now := a.now()
	claims := Claims{
		TelegramID: telegramID,
		Operator:   a.isOperator(telegramID),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   strconv.FormatInt(telegramID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer and expiry.
func (a *Authenticator) Parse(token string) (Claims, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	if claims.TelegramID == 0 {
		return Claims{}, errUnauthorized
	}
	// operator huquqi har safar configdan tekshiriladi
	claims.Operator = a.isOperator(claims.TelegramID)
	return claims, nil
}
