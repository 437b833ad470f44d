// Package fs implements the credential store over JSON files. Suitable for
// development and tests; the uniqueness invariants that a database enforces
// with unique indexes are enforced here with a process-level mutex, so this
// store must not be shared across processes.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ww "github.com/whisperwall/whisperwall"
)

// FSUserStore stores each user as a JSON file, with small pointer files
// indexing usernames and provider links back to user IDs.
type FSUserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

// pointer is the payload of username and provider index files
type pointer struct {
	UserID string `json:"user_id"`
}

func (s *FSUserStore) userPath(id string) string {
	return filepath.Join(s.StoragePath, "users", safeName(id)+".json")
}

func (s *FSUserStore) usernamePath(username string) string {
	return filepath.Join(s.StoragePath, "usernames", safeName(username)+".json")
}

func (s *FSUserStore) providerPath(provider, subjectID string) string {
	return filepath.Join(s.StoragePath, "providers", safeName(provider)+"_"+safeName(subjectID)+".json")
}

func safeName(name string) string {
	name = strings.ReplaceAll(name, ":", "_")
	return strings.ReplaceAll(name, "/", "_")
}

func (s *FSUserStore) CreateUser(ctx context.Context, user *ww.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username != "" {
		if _, err := os.Stat(s.usernamePath(user.Username)); err == nil {
			return ww.ErrDuplicateUsername
		}
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if err := s.writeUser(user); err != nil {
		return err
	}
	if user.Username != "" {
		if err := s.writePointer(s.usernamePath(user.Username), user.ID); err != nil {
			return err
		}
	}
	for provider, subjectID := range user.ProviderLinks {
		if err := s.writePointer(s.providerPath(provider, subjectID), user.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *FSUserStore) GetUserByID(ctx context.Context, id string) (*ww.User, error) {
	return s.readUser(s.userPath(id))
}

func (s *FSUserStore) GetUserByUsername(ctx context.Context, username string) (*ww.User, error) {
	ptr, err := s.readPointer(s.usernamePath(username))
	if err != nil {
		return nil, err
	}
	return s.readUser(s.userPath(ptr.UserID))
}

func (s *FSUserStore) FindOrCreateByProvider(ctx context.Context, provider, subjectID string) (*ww.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ptr, err := s.readPointer(s.providerPath(provider, subjectID))
	if err == nil {
		user, err := s.readUser(s.userPath(ptr.UserID))
		return user, false, err
	}
	if err != ww.ErrUserNotFound {
		return nil, false, err
	}

	now := time.Now()
	user := &ww.User{
		ID:            ww.NewUserID(),
		ProviderLinks: map[string]string{provider: subjectID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.writeUser(user); err != nil {
		return nil, false, err
	}
	if err := s.writePointer(s.providerPath(provider, subjectID), user.ID); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *FSUserStore) UpdateSecret(ctx context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.readUser(s.userPath(userID))
	if err != nil {
		return err
	}
	user.SecretText = secret
	user.UpdatedAt = time.Now()
	return s.writeUser(user)
}

func (s *FSUserStore) readUser(path string) (*ww.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ww.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	var user ww.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *FSUserStore) writeUser(user *ww.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.userPath(user.ID), data)
}

func (s *FSUserStore) readPointer(path string) (*pointer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ww.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	var ptr pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	return &ptr, nil
}

func (s *FSUserStore) writePointer(path, userID string) error {
	data, err := json.Marshal(&pointer{UserID: userID})
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
