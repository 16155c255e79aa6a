package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/presence/internal/models"
	"github.com/rs/zerolog"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrPhoneTaken   = errors.New("phone number already in use")
)

const mysqlDuplicateEntry = 1062

type UserRepository interface {
	GetAll(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	SetStatus(ctx context.Context, id int64, status models.PresenceStatus) error
	SetAllOffline(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id           BIGINT AUTO_INCREMENT PRIMARY KEY,
		name         VARCHAR(255) NOT NULL,
		email        VARCHAR(255) NOT NULL UNIQUE,
		phone_number VARCHAR(32)  NOT NULL UNIQUE,
		user_status  VARCHAR(16)  NOT NULL DEFAULT 'OFFLINE'
	)
`

const selectUser = `SELECT id, name, email, phone_number, user_status FROM users`

type userRepository struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewUserRepository expects a DSN with clientFoundRows=true so that updates
// which do not change a row still report it as matched.
func NewUserRepository(db *sql.DB, logger *zerolog.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

// EnsureSchema creates the users and status_events tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{schema, eventSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY id`)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to get users")
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PhoneNumber, &user.Status); err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan user row")
			continue
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = ?`, email)
}

func (r *userRepository) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE phone_number = ?`, phoneNumber)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PhoneNumber, &user.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("Failed to get user")
		return nil, err
	}
	return &user, nil
}

// Save inserts users without an id and updates the rest. An update keeps the
// stored status; only SetStatus changes it. Email and phone number are unique:
// a clash returns ErrEmailTaken or ErrPhoneTaken.
func (r *userRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == 0 {
		query := `INSERT INTO users (name, email, phone_number, user_status) VALUES (?, ?, ?, ?)`
		result, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.PhoneNumber, user.Status)
		if err != nil {
			if taken := duplicateField(err); taken != nil {
				return nil, taken
			}
			r.logger.Error().Err(err).Str("email", user.Email).Msg("Failed to create user")
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, err
		}
		saved := *user
		saved.ID = id
		return &saved, nil
	}

	query := `UPDATE users SET name = ?, email = ?, phone_number = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.PhoneNumber, user.ID)
	if err != nil {
		if taken := duplicateField(err); taken != nil {
			return nil, taken
		}
		r.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to update user")
		return nil, err
	}
	if err := expectRow(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, user.ID)
}

func (r *userRepository) SetStatus(ctx context.Context, id int64, status models.PresenceStatus) error {
	query := `UPDATE users SET user_status = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", id).Str("status", status.String()).Msg("Failed to update user status")
		return err
	}
	return expectRow(result)
}

func (r *userRepository) SetAllOffline(ctx context.Context) (int64, error) {
	query := `UPDATE users SET user_status = 'OFFLINE' WHERE user_status <> 'OFFLINE'`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to update all users to offline")
		return 0, err
	}
	return result.RowsAffected()
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", id).Msg("Failed to delete user")
		return err
	}
	return expectRow(result)
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// duplicateField maps a unique key violation to the sentinel of the column
// that clashed. It returns nil for any other error.
func duplicateField(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) || myErr.Number != mysqlDuplicateEntry {
		return nil
	}
	if strings.Contains(myErr.Message, "phone_number") {
		return ErrPhoneTaken
	}
	return ErrEmailTaken
}
