package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blood-donation/backend/internal/domain"
)

type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Rotate deactivates every active token of the owning user and inserts the
// new row inside one transaction, so two tokens can never be active at once.
func (r *RefreshTokenRepository) Rotate(token *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.IsActive = true
	token.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET is_active = false WHERE user_id = $1 AND is_active`,
		token.UserID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.IsActive,
		token.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *RefreshTokenRepository) GetActive(tokenString string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id, user_id, token, expires_at, is_active, created_at
		FROM refresh_tokens WHERE token = $1 AND is_active AND expires_at > NOW()
	`

	token := &domain.RefreshToken{}
	err := r.db.QueryRow(ctx, query, tokenString).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.IsActive,
		&token.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *RefreshTokenRepository) Deactivate(tokenString string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `UPDATE refresh_tokens SET is_active = false WHERE token = $1`
	_, err := r.db.Exec(ctx, query, tokenString)
	return err
}

func (r *RefreshTokenRepository) DeactivateAll(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `UPDATE refresh_tokens SET is_active = false WHERE user_id = $1 AND is_active`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *RefreshTokenRepository) DeleteExpired() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `DELETE FROM refresh_tokens WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, query)
	return err
}
