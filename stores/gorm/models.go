package gorm

import (
	"time"

	ww "github.com/whisperwall/whisperwall"
)

// UserModel is the GORM model for user records. Username is a pointer so
// federated-only rows store NULL, which the unique index ignores.
type UserModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Username     *string `gorm:"uniqueIndex;size:64"`
	PasswordHash []byte
	PasswordSalt []byte
	SecretText   string
	CreatedAt    time.Time           `gorm:"autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime"`
	Links        []ProviderLinkModel `gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProviderLinkModel maps a (provider, subject) pair to a user. The composite
// primary key is the uniqueness constraint that closes the concurrent
// first-login race.
type ProviderLinkModel struct {
	Provider  string    `gorm:"primaryKey;size:32"`
	SubjectID string    `gorm:"primaryKey;size:255"`
	UserID    string    `gorm:"size:64;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProviderLinkModel) TableName() string {
	return "provider_links"
}

func (m *UserModel) ToUser() *ww.User {
	user := &ww.User{
		ID:           m.ID,
		PasswordHash: m.PasswordHash,
		PasswordSalt: m.PasswordSalt,
		SecretText:   m.SecretText,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.Username != nil {
		user.Username = *m.Username
	}
	if len(m.Links) > 0 {
		user.ProviderLinks = make(map[string]string, len(m.Links))
		for _, link := range m.Links {
			user.ProviderLinks[link.Provider] = link.SubjectID
		}
	}
	return user
}

func UserToModel(u *ww.User) *UserModel {
	model := &UserModel{
		ID:           u.ID,
		PasswordHash: u.PasswordHash,
		PasswordSalt: u.PasswordSalt,
		SecretText:   u.SecretText,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Username != "" {
		username := u.Username
		model.Username = &username
	}
	for provider, subjectID := range u.ProviderLinks {
		model.Links = append(model.Links, ProviderLinkModel{
			Provider:  provider,
			SubjectID: subjectID,
			UserID:    u.ID,
		})
	}
	return model
}
