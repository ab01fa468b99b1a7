package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/store"
)

const tokenLifetime = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

// Register creates a user account with a bcrypt-hashed password. The
// returned user never carries the hash.
func (s *Service) Register(ctx context.Context, email string, password string, firstName string, lastName string) (models.User, error) {
	if err := ValidateEmail(email); err != nil {
		return models.User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	// The store mints the user id and creation time.
	user, err := s.teamloftStore.CreateUser(ctx, models.User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
	})
	if err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login verifies the password and issues a signed token. Lookup and
// compare failures collapse into one error so the response does not
// reveal which field was wrong.
func (s *Service) Login(ctx context.Context, email string, password string) (models.User, string, error) {
	user, err := s.teamloftStore.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.CreateJWT(user)
	if err != nil {
		return models.User{}, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *Service) CreateJWT(user models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    user.Id,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyJWT validates the signature and expiry and returns the user id
// and email claims.
func (s *Service) VerifyJWT(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	userId, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if userId == "" || email == "" {
		return "", "", ErrInvalidToken
	}

	return userId, email, nil
}

// AuthenticateToken resolves a bearer token to its account. Used by
// both the REST middleware and the websocket handshake.
func (s *Service) AuthenticateToken(ctx context.Context, tokenString string) (models.User, error) {
	userId, email, err := s.VerifyJWT(tokenString)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.teamloftStore.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	if user.Id != userId {
		return models.User{}, ErrInvalidToken
	}

	user.PasswordHash = ""
	return user, nil
}

// PresenceInfo builds the presentation subset of a user broadcast in
// presence events.
func PresenceInfo(user models.User) models.UserInfo {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	initials := ""
	if user.FirstName != "" {
		initials += strings.ToUpper(user.FirstName[:1])
	}
	if user.LastName != "" {
		initials += strings.ToUpper(user.LastName[:1])
	}

	return models.UserInfo{
		Id:       user.Id,
		Name:     name,
		Avatar:   user.Avatar,
		Initials: initials,
	}
}
