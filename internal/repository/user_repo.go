package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"group-chat/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetOrCreateByName(ctx context.Context, displayName string) (domain.User, error)
	SetPresence(ctx context.Context, id int64, online bool, seenAt time.Time) error
	SweepStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `
		SELECT id, display_name, is_online, last_seen, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.DisplayName,
		&u.Online,
		&u.LastSeen,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

// GetOrCreateByName resuelve un display name a su usuario, creándolo si es
// la primera vez que aparece. El upsert resuelve la carrera entre dos
// logins simultáneos con el mismo nombre sin round-trip extra.
func (r *PgUserRepository) GetOrCreateByName(ctx context.Context, displayName string) (domain.User, error) {
	const query = `
		INSERT INTO users (display_name, is_online, last_seen, created_at)
		VALUES ($1, FALSE, NOW(), NOW())
		ON CONFLICT (display_name) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, is_online, last_seen, created_at
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, displayName).Scan(
		&u.ID,
		&u.DisplayName,
		&u.Online,
		&u.LastSeen,
		&u.CreatedAt,
	)
	return u, err
}

func (r *PgUserRepository) SetPresence(ctx context.Context, id int64, online bool, seenAt time.Time) error {
	const query = `
		UPDATE users
		SET is_online = $2, last_seen = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, online, seenAt)
	return err
}

// SweepStale fuerza offline a los usuarios online cuyo last_seen quedó por
// detrás del umbral. Devuelve cuántas filas cambió.
func (r *PgUserRepository) SweepStale(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET is_online = FALSE
		WHERE is_online = TRUE AND last_seen < $1
	`
	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
