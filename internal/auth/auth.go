// Package auth implements invite-gated signup and cookie sessions. It is a
// collaborator of the resolution pipeline: the pipeline only ever sees the
// authenticated username.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/model"
	"github.com/einkauf-app/einkauf/internal/store"
)

// TokenAge is the session lifetime.
const TokenAge = 3 * 24 * time.Hour

const passwordLength = 24

// Service issues accounts and sessions.
type Service struct {
	store  store.Store
	secret []byte
}

// NewService creates the auth service with the JWT signing secret.
func NewService(s store.Store, secret string) *Service {
	return &Service{store: s, secret: []byte(secret)}
}

// Join consumes one invite charge and creates an account with a generated
// handle and password. Invalid or exhausted invites are Forbidden; the
// caller cannot distinguish the two cases.
func (s *Service) Join(ctx context.Context, inviteCode string) (username, password string, err error) {
	invite, err := s.store.GetInvite(ctx, inviteCode)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindInternalServer, "failed to look up invite", err)
	}
	if invite == nil || invite.Exhausted() {
		return "", "", apperr.New(apperr.KindForbidden, "invalid invite code")
	}
	if err := s.store.ConsumeInviteCharge(ctx, inviteCode); err != nil {
		return "", "", apperr.Wrap(apperr.KindForbidden, "invalid invite code", err)
	}

	username = generateHandle()
	password = randomString(passwordLength)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash password", zap.Error(err))
		return "", "", apperr.Wrap(apperr.KindInternalServer, "failed to create account", err)
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		InviteCode:   inviteCode,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		zap.L().Error("failed to create user", zap.Error(err))
		return "", "", apperr.Wrap(apperr.KindInternalServer, "failed to create account", err)
	}

	return username, password, nil
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUser(ctx, strings.ToLower(username))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalServer, "failed to look up user", err)
	}
	if user == nil {
		return "", apperr.New(apperr.KindForbidden, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", apperr.New(apperr.KindForbidden, "invalid credentials")
	}

	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenAge)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalServer, "failed to sign session token", err)
	}
	return signed, nil
}

// VerifyToken validates a session token and returns its username.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.New(apperr.KindUnauthorized, "invalid session")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperr.New(apperr.KindUnauthorized, "invalid session")
	}
	return claims.Subject, nil
}

// Handle word lists. Handles are memorable but carry no personal data.
var (
	handleAdjectives = []string{
		"amber", "brisk", "cedar", "dapper", "eager", "fuzzy", "gentle",
		"hazel", "ivory", "jolly", "keen", "lively", "mellow", "nimble",
		"opal", "plucky", "quiet", "rustic", "silver", "tidy", "velvet",
		"witty",
	}
	handleNouns = []string{
		"badger", "curlew", "dormouse", "ermine", "falcon", "grouse",
		"heron", "ibex", "jackdaw", "kestrel", "lynx", "marten", "newt",
		"otter", "plover", "raven", "stoat", "tern", "vole", "wren",
	}
)

func generateHandle() string {
	return fmt.Sprintf("%s-%s-%s",
		handleAdjectives[randomIndex(len(handleAdjectives))],
		handleNouns[randomIndex(len(handleNouns))],
		randomDigits(4),
	)
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(n int) string {
	var b strings.Builder
	for range n {
		b.WriteByte(alphanumeric[randomIndex(len(alphanumeric))])
	}
	return b.String()
}

func randomDigits(n int) string {
	var b strings.Builder
	for range n {
		b.WriteByte(byte('0' + randomIndex(10)))
	}
	return b.String()
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the platform source is broken.
		panic(err)
	}
	return int(v.Int64())
}
