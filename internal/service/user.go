package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/storage"
	"github.com/igrejaonline/portal/internal/validation"
)

// ErrStorageDisabled is returned by avatar uploads when no bucket is configured.
var ErrStorageDisabled = errors.New("avatar storage is not configured")

type UserService struct {
	userRepository repository.UserRepository
	storage        storage.Storage
}

// NewUserService accepts a nil storage; uploads then fail with ErrStorageDisabled.
func NewUserService(userRepository repository.UserRepository, storage storage.Storage) *UserService {
	return &UserService{
		userRepository: userRepository,
		storage:        storage,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.WithCause(apperr.NotFound("User not found"), err)
	}
	return user, err
}

// PublicProfile returns the fields anyone may see about a user.
func (s *UserService) PublicProfile(ctx context.Context, id string) (*model.PublicUser, error) {
	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.User, error) {
	user, err := s.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		err = validation.ValidateName(name)
		if err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		user.DisplayName = name
	}
	if update.Avatar != nil {
		user.Avatar = update.Avatar
	}

	err = s.userRepository.UpdateProfile(ctx, user.ID, user.DisplayName, user.Avatar)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.WithCause(apperr.NotFound("User not found"), err)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UploadAvatar stores the image under a fresh avatars/<userID>-<uuid><ext>
// key and points the profile at it. The previous avatar object is removed
// only once the profile update has committed.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*model.User, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}

	err := validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	user, err := s.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s%s-%s%s", avatarPrefix, user.ID, uuid.NewString(), strings.ToLower(filepath.Ext(header.Filename)))
	err = s.storage.Save(ctx, path, file, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	url := s.storage.URL(path)
	err = s.userRepository.UpdateProfile(ctx, user.ID, user.DisplayName, &url)
	if err != nil {
		delErr := s.storage.Delete(ctx, path)
		if delErr != nil {
			slog.Error("failed to delete avatar during cleanup", "error", delErr, "path", path)
		}
		return nil, err
	}

	if old := s.ownedAvatar(user); old != "" {
		delErr := s.storage.Delete(ctx, old)
		if delErr != nil {
			slog.Warn("failed to delete replaced avatar", "error", delErr, "path", old)
		}
	}

	user.Avatar = &url
	slog.Info("avatar uploaded", "user_id", user.ID, "path", path)
	return user, nil
}

const avatarPrefix = "avatars/"

// ownedAvatar returns the storage key behind user's current avatar, or "" when
// the avatar is unset or lives outside our bucket.
func (s *UserService) ownedAvatar(user *model.User) string {
	if user.Avatar == nil {
		return ""
	}
	base := s.storage.URL("")
	key, ok := strings.CutPrefix(*user.Avatar, base)
	if !ok || !strings.HasPrefix(key, avatarPrefix+user.ID) {
		return ""
	}
	return key
}
