package repository

import (
	"database/sql"
	"device-management-api/logger"
	"device-management-api/model"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateUsername is returned when the users table rejects an insert
// because the username is already taken. The unique constraint, not an
// application-level lookup, is what enforces uniqueness under concurrency.
var ErrDuplicateUsername = errors.New("username already exists")

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(user *model.User) error
	GetUserByUsername(username string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
}

// UserRepository implements IUserRepository.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts a new user. A unique-violation on the username column
// is mapped to ErrDuplicateUsername.
func (r *UserRepository) CreateUser(user *model.User) error {
	query := `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.DB.QueryRow(query, user.Username, user.PasswordHash, string(user.Role)).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		logger.Log.WithError(err).WithField("username", user.Username).Error("Failed to execute create user query")
		return err
	}
	return nil
}

// GetUserByUsername looks a user up by exact, case-sensitive username.
func (r *UserRepository) GetUserByUsername(username string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	err := r.DB.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("username", username).Error("Failed to execute get user by username query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(id int) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute get user by id query")
		}
		return nil, err
	}
	return user, nil
}
