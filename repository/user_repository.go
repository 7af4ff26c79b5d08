package repository

import (
	"database/sql"
	"fmt"
	"go-auth-api/model"

	"github.com/google/uuid"
)

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(user *model.User) error
	GetUserByID(id uuid.UUID) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	GetAllUsers(filter model.UserFilter) ([]*model.User, error)
	UpdateUser(id uuid.UUID, changes model.UpdateUser) (*model.User, error)
}

// UserRepository implements IUserRepository.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, username, email, password_hash, is_admin, created_at`

func (r *UserRepository) CreateUser(user *model.User) error {
	query := `INSERT INTO users (username, email, password_hash, is_admin) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.DB.QueryRow(query, user.Username, user.Email, user.PasswordHash, user.IsAdmin).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) GetUserByID(id uuid.UUID) (*model.User, error) {
	user := &model.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername returns sql.ErrNoRows when no user matches; callers map
// that to an authentication failure during login.
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	err := r.DB.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetAllUsers(filter model.UserFilter) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []interface{}{}
	where := ""

	if filter.Username != "" {
		args = append(args, "%"+filter.Username+"%")
		where = fmt.Sprintf(" WHERE username ILIKE $%d", len(args))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		if where == "" {
			where = fmt.Sprintf(" WHERE email ILIKE $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND email ILIKE $%d", len(args))
		}
	}

	rows, err := r.DB.Query(query+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateUser(id uuid.UUID, changes model.UpdateUser) (*model.User, error) {
	user := &model.User{}
	query := `UPDATE users SET username = $1, email = $2, password_hash = $3, is_admin = $4 WHERE id = $5 RETURNING ` + userColumns
	err := r.DB.QueryRow(query, changes.Username, changes.Email, changes.PasswordHash, changes.IsAdmin, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
