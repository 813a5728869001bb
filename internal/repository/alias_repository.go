package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAliasNotFound = errors.New("alias not found")
	ErrAliasExists   = errors.New("alias already exists")
)

const uniqueViolation = "23505"

type AliasRepository interface {
	Create(ctx context.Context, alias *models.Alias) error
	Exists(ctx context.Context, code string) (bool, error)
	GetByShortCode(ctx context.Context, code string) (*models.Alias, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]models.Alias, error)
	IncrementVisit(ctx context.Context, code, country string) error
}

type aliasRepository struct {
	db *PostgresDB
}

func NewAliasRepository(db *PostgresDB) AliasRepository {
	return &aliasRepository{db: db}
}

// Create checks for the code before inserting. The check and the insert are
// not one transaction; a concurrent insert of the same code that wins the
// race is reported through the primary key as ErrAliasExists.
func (r *aliasRepository) Create(ctx context.Context, alias *models.Alias) error {
	exists, err := r.Exists(ctx, alias.ShortCode)
	if err != nil {
		return err
	}
	if exists {
		return ErrAliasExists
	}

	query := `
		INSERT INTO aliases (short_code, original_url)
		VALUES ($1, $2)
		RETURNING clicks, country_stats, created_at
	`

	err = r.db.Pool.QueryRow(ctx, query, alias.ShortCode, alias.OriginalURL).Scan(
		&alias.Clicks,
		&alias.CountryStats,
		&alias.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAliasExists
		}
		return fmt.Errorf("failed to create alias: %w", err)
	}

	return nil
}

func (r *aliasRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM aliases WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check alias: %w", err)
	}
	return exists, nil
}

func (r *aliasRepository) GetByShortCode(ctx context.Context, code string) (*models.Alias, error) {
	query := `
		SELECT short_code, original_url, clicks, country_stats, created_at
		FROM aliases
		WHERE short_code = $1
	`

	alias := &models.Alias{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&alias.ShortCode,
		&alias.OriginalURL,
		&alias.Clicks,
		&alias.CountryStats,
		&alias.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}

	return alias, nil
}

// Delete is idempotent: deleting a missing code is not an error.
func (r *aliasRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM aliases WHERE short_code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}
	return nil
}

func (r *aliasRepository) List(ctx context.Context) ([]models.Alias, error) {
	query := `
		SELECT short_code, original_url, clicks, country_stats, created_at
		FROM aliases
		ORDER BY created_at DESC, short_code
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}
	defer rows.Close()

	aliases := []models.Alias{}
	for rows.Next() {
		var alias models.Alias
		if err := rows.Scan(
			&alias.ShortCode,
			&alias.OriginalURL,
			&alias.Clicks,
			&alias.CountryStats,
			&alias.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, alias)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aliases: %w", err)
	}

	return aliases, nil
}

// IncrementVisit bumps clicks and the country counter in one UPDATE. The row
// lock serializes concurrent visits, so no update is lost.
func (r *aliasRepository) IncrementVisit(ctx context.Context, code, country string) error {
	query := `
		UPDATE aliases
		SET clicks = clicks + 1,
			country_stats = jsonb_set(
				country_stats,
				ARRAY[$2::text],
				to_jsonb(COALESCE((country_stats ->> $2::text)::bigint, 0) + 1)
			)
		WHERE short_code = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, code, country)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAliasNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
