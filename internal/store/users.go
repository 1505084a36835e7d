package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

const userColumns = `id, username, password_hash, display_name, roles, is_active, created_at, last_login_at`

// PostgresUsers keeps operator accounts in the users table
type PostgresUsers struct {
	DB *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{DB: db}
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var displayName sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	if err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &displayName, &roles,
		&u.IsActive, &u.CreatedAt, &lastLoginAt,
	); err != nil {
		return u, err
	}
	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time.UTC()
		u.LastLoginAt = &t
	}
	u.Roles = roles
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// Create inserts u and fills in its id and creation time
func (p *PostgresUsers) Create(ctx context.Context, u models.User) (models.User, error) {
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, display_name, roles, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.DisplayName, pq.Array(u.Roles), u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return u, mapErr("creating user "+u.Username, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// ByUsername finds an active account
func (p *PostgresUsers) ByUsername(ctx context.Context, username string) (models.User, error) {
	row := p.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND is_active = true`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user %s not found", username)
	}
	if err != nil {
		return u, apperr.Unavailable("loading user", err)
	}
	return u, nil
}

func (p *PostgresUsers) ByID(ctx context.Context, id int64) (models.User, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return u, apperr.Unavailable("loading user", err)
	}
	return u, nil
}

// List returns every account, newest first
func (p *PostgresUsers) List(ctx context.Context) ([]models.User, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, apperr.Unavailable("listing users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Unavailable("scanning user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("listing users", err)
	}
	return users, nil
}

func (p *PostgresUsers) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := p.DB.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id); err != nil {
		return apperr.Unavailable("recording login", err)
	}
	return nil
}

// Count reports how many accounts exist
func (p *PostgresUsers) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, apperr.Unavailable("counting users", err)
	}
	return n, nil
}

// MemoryUsers is the process-local account store
type MemoryUsers struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
	now    func() time.Time
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users: map[int64]models.User{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return u, apperr.DuplicateKey("user %s already exists", u.Username)
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = m.now()
	u.Roles = slices.Clone(u.Roles)
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryUsers) ByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username && u.IsActive {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user %s not found", username)
}

func (m *MemoryUsers) ByID(_ context.Context, id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return models.User{}, apperr.NotFound("user %d not found", id)
}

func (m *MemoryUsers) List(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (m *MemoryUsers) TouchLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user %d not found", id)
	}
	at = at.UTC()
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func (m *MemoryUsers) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}
