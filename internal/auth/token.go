// Package auth 玩家身份令牌：首次连接分配 uid，重连时凭令牌保持同一身份。
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "party-games"

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("invalid player token")

// Identity 令牌中携带的玩家身份
type Identity struct {
	UID  string
	Name string
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Issuer 签发和校验玩家令牌
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer 创建签发器；secret 为空时随机生成，重启后旧令牌全部失效
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// NewIdentity 分配新的玩家 id
func NewIdentity(name string) Identity {
	return Identity{UID: uuid.NewString(), Name: name}
}

// Issue 为身份签发令牌
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	rc := jwt.RegisteredClaims{
		Subject:  id.UID,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
	}
	if i.ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{Name: id.Name, RegisteredClaims: rc})
	return token.SignedString(i.secret)
}

// Validate 校验令牌并返回身份
func (i *Issuer) Validate(tokenString string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{UID: c.Subject, Name: c.Name}, nil
}

// Resume 有合法令牌时沿用原身份，否则分配新身份；返回身份和（新）令牌
func (i *Issuer) Resume(token, name string) (Identity, string, error) {
	name = strings.TrimSpace(name)
	if token != "" {
		id, err := i.Validate(token)
		if err == nil {
			if name != "" && name != id.Name {
				id.Name = name
				token, err = i.Issue(id)
				if err != nil {
					return Identity{}, "", err
				}
			}
			return id, token, nil
		}
	}

	if name == "" {
		name = GenerateNickname()
	}
	id := NewIdentity(name)
	fresh, err := i.Issue(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, fresh, nil
}
