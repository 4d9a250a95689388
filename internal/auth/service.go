package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"classquiz/internal/models"
)

const tokenLifetime = 24 * time.Hour

type Service struct {
	repo      *Repository
	jwtSecret []byte
}

func NewService(repo *Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *Service) Register(name, email, password string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, models.ErrValidation("role must be teacher or student")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.ErrInternal(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(email, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		// Same refusal for unknown email and bad password.
		return "", nil, models.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, models.ErrUnauthorized("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     time.Now().Add(tokenLifetime).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, models.ErrInternal(err)
	}

	return tokenString, user, nil
}

func (s *Service) Profile(userID uint) (*models.User, error) {
	return s.repo.GetUserByID(userID)
}

// UpdateProfile changes the caller's display name and, when a new password is
// supplied, rehashes it. Email and role are fixed at registration.
func (s *Service) UpdateProfile(userID uint, name, password string) (*models.User, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	if password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.ErrInternal(err)
		}
		user.Password = string(hashedPassword)
	}

	if err := s.repo.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ParseToken validates a raw JWT and returns the identity it carries. Used by
// the HTTP middleware and the websocket upgrade, which reads the token from a
// query parameter.
func (s *Service) ParseToken(tokenString string) (Identity, error) {
	return parseToken(tokenString, s.jwtSecret)
}

func parseToken(tokenString string, secret []byte) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return Identity{}, models.ErrUnauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, models.ErrUnauthorized("invalid token claims")
	}

	userID, ok := (*claims)["user_id"].(float64)
	if !ok {
		return Identity{}, models.ErrUnauthorized("invalid user id in token")
	}
	roleStr, ok := (*claims)["role"].(string)
	if !ok || !models.Role(roleStr).Valid() {
		return Identity{}, models.ErrUnauthorized("invalid role in token")
	}

	return Identity{UserID: uint(userID), Role: models.Role(roleStr)}, nil
}
