package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	ww "github.com/whisperwall/whisperwall"
)

// Open opens a database with dialect error translation enabled (needed to
// detect uniqueness conflicts portably) and runs migrations.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate runs database migrations for all whisperwall tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&ProviderLinkModel{},
	)
}

// UserStore implements whisperwall.UserStore using GORM. All uniqueness
// invariants live in the schema (unique index on username, composite key on
// provider links), so conflicting writes are serialized by the database.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *ww.User) error {
	model := UserToModel(user)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := model.Links
		model.Links = nil
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		for i := range links {
			if err := tx.Create(&links[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ww.ErrDuplicateUsername
		}
		return storeErr(err)
	}
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*ww.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).Preload("Links").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ww.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*ww.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).Preload("Links").First(&model, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ww.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) FindOrCreateByProvider(ctx context.Context, provider, subjectID string) (*ww.User, bool, error) {
	user, err := s.getUserByProvider(ctx, provider, subjectID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ww.ErrUserNotFound) {
		return nil, false, err
	}

	// No link yet - insert a fresh user plus the link in one transaction.
	// The link's composite primary key is the arbiter: if a concurrent
	// first login wins, our insert fails with a duplicate key, the
	// transaction rolls back, and we return the winner's record.
	model := &UserModel{ID: ww.NewUserID()}
	link := &ProviderLinkModel{Provider: provider, SubjectID: subjectID, UserID: model.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Create(link).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			user, err := s.getUserByProvider(ctx, provider, subjectID)
			return user, false, err
		}
		return nil, false, storeErr(err)
	}

	return &ww.User{
		ID:            model.ID,
		ProviderLinks: map[string]string{provider: subjectID},
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}, true, nil
}

func (s *UserStore) getUserByProvider(ctx context.Context, provider, subjectID string) (*ww.User, error) {
	var link ProviderLinkModel
	err := s.db.WithContext(ctx).First(&link, "provider = ? AND subject_id = ?", provider, subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ww.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return s.GetUserByID(ctx, link.UserID)
}

func (s *UserStore) UpdateSecret(ctx context.Context, userID, secret string) error {
	result := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", userID).Update("secret_text", secret)
	if result.Error != nil {
		return storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ww.ErrUserNotFound
	}
	return nil
}

// storeErr wraps database failures so callers can treat them as transient
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
}
