package profile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/storage"
	"github.com/oggyb/galatea/internal/utils/text"
)

const (
	minAge = 18
	maxAge = 120
)

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	DisplayName       *string   `json:"display_name"`
	Bio               *string   `json:"bio"`
	Age               *int      `json:"age"`
	Location          *string   `json:"location"`
	Interests         *[]string `json:"interests"`
	PersonalityTraits *[]string `json:"personality_traits"`
}

// PreferencesInput is a partial preferences update.
type PreferencesInput struct {
	AgeRangeMin                  *int      `json:"age_range_min"`
	AgeRangeMax                  *int      `json:"age_range_max"`
	PreferredPersonalities       *[]string `json:"preferred_personalities"`
	PreferredInterests           *[]string `json:"preferred_interests"`
	CommunicationStylePreference *string   `json:"communication_style_preference"`
	RelationshipGoals            *[]string `json:"relationship_goals"`
}

// Service manages the signed-in user's profile, preferences, stats and avatar.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*db.UserProfile, error) {
	p, err := s.userRepo.Profile(ctx, userID)
	if err != nil {
		return nil, notFound(err, "profile not found")
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of in. Strings are stripped of HTML.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*db.UserProfile, error) {
	s.appCtx.Logger.Debug("UpdateProfile called", "user_id", userID)

	fields := map[string]any{}
	if in.DisplayName != nil {
		name := text.Clean(*in.DisplayName)
		if name == "" {
			return nil, svcErr.InvalidArgument("display_name must not be empty")
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		fields["bio"] = text.Clean(*in.Bio)
	}
	if in.Location != nil {
		fields["location"] = text.Clean(*in.Location)
	}
	if in.Age != nil {
		if *in.Age < minAge || *in.Age > maxAge {
			return nil, svcErr.InvalidArgument(fmt.Sprintf("age must be between %d and %d", minAge, maxAge))
		}
		fields["age"] = *in.Age
	}
	if in.Interests != nil {
		fields["interests"] = db.StringList(text.CleanList(*in.Interests))
	}
	if in.PersonalityTraits != nil {
		fields["personality_traits"] = db.StringList(text.CleanList(*in.PersonalityTraits))
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
			s.appCtx.Logger.Error("UpdateProfile failed", "user_id", userID, "err", err)
			return nil, svcErr.Map(err)
		}
		s.invalidateRecommendations(ctx, userID)
	}
	return s.GetProfile(ctx, userID)
}

func (s *Service) GetPreferences(ctx context.Context, userID string) (*db.UserPreferences, error) {
	p, err := s.userRepo.Preferences(ctx, userID)
	if err != nil {
		return nil, notFound(err, "preferences not found")
	}
	return p, nil
}

// UpdatePreferences merges in over the stored preferences.
// The resulting age range must satisfy 18 <= min <= max <= 120.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, in PreferencesInput) (*db.UserPreferences, error) {
	s.appCtx.Logger.Debug("UpdatePreferences called", "user_id", userID)

	p, err := s.userRepo.Preferences(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}
	if p == nil {
		p = &db.UserPreferences{UserID: userID, AgeRangeMin: minAge, AgeRangeMax: 99}
	}

	if in.AgeRangeMin != nil {
		p.AgeRangeMin = *in.AgeRangeMin
	}
	if in.AgeRangeMax != nil {
		p.AgeRangeMax = *in.AgeRangeMax
	}
	if p.AgeRangeMin < minAge || p.AgeRangeMax > maxAge || p.AgeRangeMin > p.AgeRangeMax {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("age range must satisfy %d <= min <= max <= %d", minAge, maxAge))
	}
	if in.PreferredPersonalities != nil {
		p.PreferredPersonalities = text.CleanList(*in.PreferredPersonalities)
	}
	if in.PreferredInterests != nil {
		p.PreferredInterests = text.CleanList(*in.PreferredInterests)
	}
	if in.CommunicationStylePreference != nil {
		p.CommunicationStylePreference = text.Clean(*in.CommunicationStylePreference)
	}
	if in.RelationshipGoals != nil {
		p.RelationshipGoals = text.CleanList(*in.RelationshipGoals)
	}

	if err := s.userRepo.SavePreferences(ctx, p); err != nil {
		s.appCtx.Logger.Error("UpdatePreferences failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	s.invalidateRecommendations(ctx, userID)
	return s.GetPreferences(ctx, userID)
}

func (s *Service) GetStats(ctx context.Context, userID string) (*db.UserStats, error) {
	st, err := s.userRepo.Stats(ctx, userID)
	if err != nil {
		return nil, notFound(err, "stats not found")
	}
	return st, nil
}

// TouchLastActive records activity on the profile.
func (s *Service) TouchLastActive(ctx context.Context, userID string) error {
	err := s.userRepo.UpdateProfile(ctx, userID, map[string]any{"last_active_at": db.Now()})
	return svcErr.Map(err)
}

// UploadAvatar stores a new avatar and points avatar_url at it.
// The previous avatar is removed best-effort.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, size int64) (string, error) {
	if s.appCtx.Storage == nil {
		return "", svcErr.Upstream("object storage unavailable", storage.ErrStorageUnavailable)
	}
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	contentType, body, err := storage.Sniff(r)
	if err != nil {
		return "", svcErr.InvalidArgument("unreadable image")
	}
	if err := storage.Validate(storage.BucketAvatars, contentType, size); err != nil {
		return "", svcErr.InvalidArgument(err.Error())
	}

	path := fmt.Sprintf("%s_%d.%s", userID, db.Now().Unix(), storage.Extension(contentType))
	url, err := s.appCtx.Storage.Upload(ctx, storage.BucketAvatars, path, body)
	if err != nil {
		s.appCtx.Logger.Error("avatar upload failed", "user_id", userID, "err", err)
		return "", svcErr.Upstream("avatar upload failed", err)
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		return "", svcErr.Map(err)
	}

	if old := storage.PathFromURL(storage.BucketAvatars, p.AvatarURL); old != "" && p.AvatarURL != url {
		s.removeBestEffort(ctx, userID, old)
	}
	return url, nil
}

// RemoveAvatar clears avatar_url and deletes the stored object.
func (s *Service) RemoveAvatar(ctx context.Context, userID string) error {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if p.AvatarURL == "" {
		return nil
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, map[string]any{"avatar_url": ""}); err != nil {
		return svcErr.Map(err)
	}
	if s.appCtx.Storage != nil {
		if old := storage.PathFromURL(storage.BucketAvatars, p.AvatarURL); old != "" {
			s.removeBestEffort(ctx, userID, old)
		}
	}
	return nil
}

func (s *Service) removeBestEffort(ctx context.Context, userID, path string) {
	if err := s.appCtx.Storage.Remove(ctx, storage.BucketAvatars, []string{path}); err != nil {
		s.appCtx.Logger.Warn("failed to remove previous avatar", "user_id", userID, "err", err)
	}
}

func (s *Service) invalidateRecommendations(ctx context.Context, userID string) {
	if s.appCtx.RedisCache == nil {
		return
	}
	if err := s.appCtx.RedisCache.InvalidateRecommendations(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate recommendations", "user_id", userID, "err", err)
	}
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound(msg)
	}
	return svcErr.Map(err)
}
