package main

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/hkdf"
)

const (
	inviteIssuer = "airhockey"
	inviteExpiry = time.Hour
	inviteKeyLen = 32
	qrSize       = 256
)

var ErrInvalidInvite = errors.New("invalid invite")

// InviteRole is what the invite holder joins as
type InviteRole string

const (
	InvitePlayer    InviteRole = "player"
	InviteSpectator InviteRole = "spectator"
)

// ParseInviteRole accepts "", "player" and "spectator"; empty means player
func ParseInviteRole(s string) (InviteRole, error) {
	switch InviteRole(strings.ToLower(s)) {
	case "", InvitePlayer:
		return InvitePlayer, nil
	case InviteSpectator:
		return InviteSpectator, nil
	}
	return "", fmt.Errorf("unknown invite role %q", s)
}

// InviteClaims is the signed payload of an invite link
type InviteClaims struct {
	Room string     `json:"room"`
	Role InviteRole `json:"role"`
	jwt.RegisteredClaims
}

// Invites issues and verifies signed room links
type Invites struct {
	key     []byte
	baseURL string
	now     func() time.Time
}

// NewInvites derives the signing key from secret. With no secret a random
// key is used, so links do not survive a restart.
func NewInvites(secret, baseURL string) (*Invites, error) {
	key, err := inviteKey(secret)
	if err != nil {
		return nil, err
	}
	return &Invites{
		key:     key,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

func inviteKey(secret string) ([]byte, error) {
	key := make([]byte, inviteKeyLen)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate invite key: %w", err)
		}
		return key, nil
	}
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(inviteIssuer), []byte("invite-signing"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive invite key: %w", err)
	}
	return key, nil
}

// Issue signs an invite for the normalised room code
func (iv *Invites) Issue(code string, role InviteRole) (string, error) {
	room, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}
	now := iv.now()
	claims := InviteClaims{
		Room: room,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    inviteIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(inviteExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(iv.key)
}

// Verify checks the signature, issuer and expiry of an invite token
func (iv *Invites) Verify(tokenStr string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return iv.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(inviteIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(iv.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvite, err)
	}
	if _, err := ParseInviteRole(string(claims.Role)); err != nil || claims.Room == "" {
		return nil, ErrInvalidInvite
	}
	return claims, nil
}

// Link builds the shareable URL for a token
func (iv *Invites) Link(token string) string {
	return iv.baseURL + "/?invite=" + url.QueryEscape(token)
}

// QR renders link as a PNG
func (iv *Invites) QR(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
