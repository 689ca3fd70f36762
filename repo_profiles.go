package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Profiles interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error)
	Save(ctx context.Context, profile *Profile) (*Profile, error)
	SaveTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error)
	// EnsureTx returns the user's profile, creating an empty one if missing
	EnsureTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error)
}

type profiles struct {
	db *bun.DB
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	return &profiles{db: db}
}

func (p *profiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return p.GetByUserIDTx(ctx, p.db, userID)
}

func (p *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile")
	}
	return record, nil
}

func (p *profiles) CreateTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error) {
	if profile == nil || profile.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	if _, err := tx.NewInsert().Model(profile).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile")
	}
	return profile, nil
}

func (p *profiles) Save(ctx context.Context, profile *Profile) (*Profile, error) {
	return p.SaveTx(ctx, p.db, profile)
}

func (p *profiles) SaveTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error) {
	if profile == nil || profile.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}

	res, err := tx.NewUpdate().
		Model(profile).
		ExcludeColumn("id", "user_id").
		Where("user_id = ?", profile.UserID).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save profile")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (p *profiles) EnsureTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error) {
	record, err := p.GetByUserIDTx(ctx, tx, userID)
	if err == nil {
		return record, nil
	}

	if !goerrors.IsNotFound(err) {
		return nil, err
	}

	return p.CreateTx(ctx, tx, NewProfile(userID))
}
