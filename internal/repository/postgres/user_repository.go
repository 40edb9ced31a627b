package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blood-donation/backend/internal/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, last_name, COALESCE(email, ''), phone_number, blood_group, last_donation_date, city, country, password, registration_date`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.LastName,
		&user.Email,
		&user.PhoneNumber,
		&user.BloodGroup,
		&user.LastDonationDate,
		&user.City,
		&user.Country,
		&user.Password,
		&user.RegistrationDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Create(user *domain.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO users (id, name, last_name, email, phone_number, blood_group, last_donation_date, city, country, password, registration_date)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
	`

	if user.ID == "" {
		user.ID = domain.NewUserID()
	}
	user.RegistrationDate = time.Now()

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.LastName,
		user.Email,
		user.PhoneNumber,
		user.BloodGroup,
		user.LastDonationDate,
		user.City,
		user.Country,
		user.Password,
		user.RegistrationDate,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicatePhone
	}
	return err
}

func (r *UserRepository) GetByID(id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByPhone(phone string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`
	return scanUser(r.db.QueryRow(ctx, query, phone))
}

func (r *UserRepository) ListAll() ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users ORDER BY registration_date DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (r *UserRepository) ListByBloodGroup(group string) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE blood_group = $1 ORDER BY registration_date DESC`
	rows, err := r.db.Query(ctx, query, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.LastName,
			&user.Email,
			&user.PhoneNumber,
			&user.BloodGroup,
			&user.LastDonationDate,
			&user.City,
			&user.Country,
			&user.Password,
			&user.RegistrationDate,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
