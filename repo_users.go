package account

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var TrackSuccessfulLoginSQL = `UPDATE "users"
SET
	"last_login" = ?,
	"login_attempt_at" = NULL,
	"login_attempts" = 0
WHERE
	"id" = ?;`

// TrackAttemptedLoginSQL stores the attempt count computed by the caller,
// which already dropped attempts older than the cool down period.
var TrackAttemptedLoginSQL = `UPDATE "users"
SET
	"login_attempts" = ?,
	"login_attempt_at" = ?
WHERE
	"id" = ?;`

type Users interface {
	UserFinder

	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*User, error)

	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	repository.Repository[*User]
	db       *bun.DB
	profiles Profiles
	now      func() time.Time
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock replaces the time source used for timestamps
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, profiles Profiles, opts ...UsersOption) Users {
	if profiles == nil {
		profiles = NewProfilesRepository(db)
	}

	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		profiles:   profiles,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByID(ctx, id.String(), withProfile)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user").
			WithMetadata(map[string]any{"id": id.String()})
	}
	dropEmptyProfile(record)
	return record, nil
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.selectOne(ctx, tx, "?TableAlias.id = ?", id)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.selectOne(ctx, tx, "LOWER(?TableAlias.email) = LOWER(?)", NormalizeEmail(email))
}

// GetByIdentifier accepts either a user id or an email address
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if id, err := uuid.Parse(identifier); err == nil {
		return a.GetByID(ctx, id)
	}
	return a.GetByEmail(ctx, identifier)
}

func (a *users) EmailExists(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("LOWER(?TableAlias.email) = LOWER(?)", NormalizeEmail(email)).
		Exists(ctx)
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	records := []*User{}
	err := a.db.NewSelect().
		Model(&records).
		Relation("Profile").
		Order("usr.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	for _, u := range records {
		dropEmptyProfile(u)
	}
	return records, nil
}

// Create inserts the user and its profile in one transaction
func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = a.CreateTx(ctx, tx, user)
		return err
	})
	return out, err
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("create user: nil record", goerrors.CategoryBadInput)
	}

	prepareUserDefaults(user, a.now())

	taken, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("LOWER(?TableAlias.email) = LOWER(?)", user.Email).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
	}
	if taken {
		return nil, ErrEmailTaken
	}

	profile := user.Profile
	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user").
			WithMetadata(map[string]any{"email": user.Email})
	}
	record.Profile = profile

	if err := a.afterSaveTx(ctx, tx, record, true); err != nil {
		return nil, err
	}

	return record, nil
}

// Save updates the user row and re-saves its profile
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = a.SaveTx(ctx, tx, user)
		return err
	})
	return out, err
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", user.ID).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	user.Email = NormalizeEmail(user.Email)
	user.UpdatedAt = a.now()

	profile := user.Profile
	record, err := a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save user").
			WithMetadata(map[string]any{"id": user.ID.String()})
	}
	record.Profile = profile

	if err := a.afterSaveTx(ctx, tx, record, false); err != nil {
		return nil, err
	}

	return record, nil
}

// afterSaveTx keeps the one to one profile in step with the user.
// It runs at the end of every user insert or update.
func (a *users) afterSaveTx(ctx context.Context, tx bun.IDB, user *User, created bool) error {
	if created {
		profile := user.Profile
		if profile == nil {
			profile = NewProfile(user.ID)
		}
		profile.UserID = user.ID
		if _, err := a.profiles.CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile").
				WithMetadata(map[string]any{"user": user.ID.String()})
		}
		user.Profile = profile
		return nil
	}

	if user.Profile == nil {
		profile, err := a.profiles.EnsureTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to ensure profile").
				WithMetadata(map[string]any{"user": user.ID.String()})
		}
		user.Profile = profile
	}

	user.Profile.UserID = user.ID
	if _, err := a.profiles.SaveTx(ctx, tx, user.Profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save profile").
			WithMetadata(map[string]any{"user": user.ID.String()})
	}
	return nil
}

// Delete removes the profile and the user
func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Profile)(nil)).
			Where("user_id = ?", id).
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile")
		}

		res, err := tx.NewDelete().
			Model((*User)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	loggedInAt := a.now()
	if _, err := a.db.NewRaw(TrackSuccessfulLoginSQL, loggedInAt, user.ID).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login")
	}
	user.LastLogin = &loggedInAt
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

// TrackAttemptedLogin stores user.LoginAttempts + 1. Callers reset the
// in memory counter once the cool down period is over.
func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := a.now()
	attempts := user.LoginAttempts + 1
	if _, err := a.db.NewRaw(TrackAttemptedLoginSQL, attempts, now, user.ID).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
	}
	user.LoginAttempts = attempts
	user.LoginAttemptAt = &now
	return nil
}

func (a *users) selectOne(ctx context.Context, tx bun.IDB, where string, args ...any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Profile").
		Where(where, args...).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	dropEmptyProfile(record)
	return record, nil
}

func withProfile(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("Profile")
}

func dropEmptyProfile(u *User) {
	if u.Profile != nil && u.Profile.ID == 0 {
		u.Profile = nil
	}
}

func prepareUserDefaults(record *User, now time.Time) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)

	if record.PasswordHash == "" {
		record.PasswordHash = RandomPasswordHash()
	}

	if record.DateJoined.IsZero() {
		record.DateJoined = now
	}

	record.CreatedAt = now
	record.UpdatedAt = now
}
