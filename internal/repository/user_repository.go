package repository

import (
	"database/sql"
	"strings"

	"github.com/collabthon/collabthon-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(email, username, password string, role models.UserRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(email, username, password string, role models.UserRole) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return models.User{}, errors.New("email and username are required")
	}
	if !models.IsValidRole(role) {
		role = models.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	const query = `
		INSERT INTO users (email, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, username, password_hash, role, is_active, is_verified, created_at, updated_at;
	`
	var user models.User
	err = u.db.QueryRow(query, email, username, string(hash), role).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.User{}, errors.New("email or username already registered")
		}
		return models.User{}, errors.Wrap(err, "create user")
	}
	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	user, err := u.GetUserByEmail(email)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return user, nil
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	return u.getUser("id", userID)
}

func (u *userRepository) GetUserByEmail(email string) (models.User, error) {
	return u.getUser("email", strings.TrimSpace(strings.ToLower(email)))
}

func (u *userRepository) getUser(column, value string) (models.User, error) {
	query := `
		SELECT id, email, username, password_hash, role, is_active, is_verified, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1;
	`
	var user models.User
	err := u.db.QueryRow(query, value).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, errors.Wrap(err, "get user")
	}
	return user, nil
}
