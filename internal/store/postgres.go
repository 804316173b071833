package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres es el repositorio sobre pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Pool expone el pool subyacente (migraciones, health).
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

const userColumns = `id, email, name, password_hash, role,
	google_id, facebook_id,
	totp_secret, recovery_hashes, mfa_enabled,
	disabled, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role,
		&u.GoogleID, &u.FacebookID,
		&u.TOTPSecret, &u.RecoveryHashes, &u.MFAEnabled,
		&u.Disabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (p *Postgres) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.Email = normEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, role,
			google_id, facebook_id,
			totp_secret, recovery_hashes, mfa_enabled,
			disabled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role,
		u.GoogleID, u.FacebookID,
		u.TOTPSecret, u.RecoveryHashes, u.MFAEnabled,
		u.Disabled, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		normEmail(email),
	)
	return scanUser(row)
}

func (p *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	return scanUser(row)
}

func (p *Postgres) GetByProviderID(ctx context.Context, provider, providerID string) (*User, error) {
	var col string
	switch provider {
	case "google":
		col = "google_id"
	case "facebook":
		col = "facebook_id"
	default:
		return nil, ErrNotFound
	}
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+col+` = $1 AND `+col+` <> ''`,
		providerID,
	)
	return scanUser(row)
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		hash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateMFA(ctx context.Context, id uuid.UUID, totpSecret string, recoveryHashes []string, enabled bool) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE users
		   SET totp_secret = $1, recovery_hashes = $2, mfa_enabled = $3, updated_at = now()
		 WHERE id = $4`,
		totpSecret, recoveryHashes, enabled, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ConsumeRecoveryCode(ctx context.Context, id uuid.UUID, index int) error {
	// arrays de postgres son 1-based
	tag, err := p.pool.Exec(ctx, `
		UPDATE users
		   SET recovery_hashes[$1] = '', updated_at = now()
		 WHERE id = $2 AND $1 BETWEEN 1 AND array_length(recovery_hashes, 1)`,
		index+1, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) LinkProvider(ctx context.Context, id uuid.UUID, provider, providerID string) error {
	var col string
	switch provider {
	case "google":
		col = "google_id"
	case "facebook":
		col = "facebook_id"
	default:
		return nil
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET `+col+` = $1, updated_at = now() WHERE id = $2`,
		providerID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() { p.pool.Close() }
