package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicate = errors.New("already exists")

// DuplicateError names the unique fields a new user collides on.
type DuplicateError struct {
	Fields map[string]string
}

func (e *DuplicateError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	return fmt.Sprintf("duplicate %s", strings.Join(names, ", "))
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u after checking username and email are free. UUID and
// role are filled when empty.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if email == "" {
			u.Email = nil
		} else {
			u.Email = &email
		}
	}

	dup := map[string]string{}
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("LOWER(username) = ?", strings.ToLower(u.Username)).Count(&n).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		dup["username"] = "Username already exists"
	}
	if u.Email != nil {
		if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", *u.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			dup["email"] = "Email already exists"
		}
	}
	if len(dup) > 0 {
		return &DuplicateError{Fields: dup}
	}

	if u.UUID == "" {
		u.UUID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) ByID(ctx context.Context, id uint) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// List searches username, email and full name.
func (r *UserRepository) List(ctx context.Context, search string, p Params) ([]User, int64, error) {
	q := r.db.WithContext(ctx).Model(&User{})
	if s := strings.TrimSpace(search); s != "" {
		clause, args := searchClause(s, "username", "COALESCE(email, '')", "full_name")
		q = q.Where(clause, args...)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []User
	if err := q.Order("created_at DESC, id DESC").Limit(p.Limit()).Offset(p.Offset()).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// RoleCounts returns the number of users per role plus "total".
func (r *UserRepository) RoleCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Role string
		N    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&User{}).
		Select("role, COUNT(*) AS n").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	out := map[string]int64{"total": 0, RoleAdmin: 0, RoleMember: 0}
	for _, rc := range rows {
		out[rc.Role] = rc.N
		out["total"] += rc.N
	}
	return out, nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists.
// It reports whether an account was created.
func (r *UserRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("role = ?", RoleAdmin).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	u := &User{Username: username, FullName: "Administrator", PasswordHash: passwordHash, Role: RoleAdmin}
	if err := r.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
