package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"conduit/internal/domain"
)

const profileColumns = `id, email, full_name, avatar_url, phone_number, role, is_active, last_seen,
	password_hash, salt, created_at, updated_at`

type profileRepository struct {
	DB *sql.DB
}

func NewProfileRepository(db *sql.DB) domain.ProfileRepository {
	return &profileRepository{
		DB: db,
	}
}

func scanProfile(s rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	var avatar, phone sql.NullString
	var lastSeen sql.NullTime
	err := s.Scan(&p.ID, &p.Email, &p.FullName, &avatar, &phone, &p.Role, &p.IsActive, &lastSeen,
		&p.PasswordHash, &p.Salt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AvatarURL = stringPtr(avatar)
	p.PhoneNumber = stringPtr(phone)
	p.LastSeen = timePtr(lastSeen)
	return p, nil
}

func (r *profileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (email, full_name, avatar_url, phone_number, role, is_active, password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.Email, p.FullName, p.AvatarURL, p.PhoneNumber, p.Role, p.IsActive, p.PasswordHash, p.Salt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return mapPQError(err, domain.ErrDuplicateEmail)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *profileRepository) getOne(ctx context.Context, query string, arg string) (*domain.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	if upd.FullName != nil {
		setClauses = append(setClauses, fmt.Sprintf("full_name = $%d", n))
		args = append(args, *upd.FullName)
		n++
	}
	if upd.AvatarURL != nil {
		setClauses = append(setClauses, fmt.Sprintf("avatar_url = $%d", n))
		args = append(args, *upd.AvatarURL)
		n++
	}
	if upd.PhoneNumber != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone_number = $%d", n))
		args = append(args, *upd.PhoneNumber)
		n++
	}
	if n == 1 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d RETURNING %s`, strings.Join(setClauses, ", "), n, profileColumns)
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*domain.Profile, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	sqlQuery := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE is_active AND id <> $1 AND (full_name ILIKE $2 OR email ILIKE $2)
		ORDER BY full_name
		LIMIT $3
	`
	rows, err := r.DB.QueryContext(ctx, sqlQuery, excludeID, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	profiles := make([]*domain.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE profiles SET last_seen = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
