package companion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/completion"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/metrics"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/storage"
	"github.com/oggyb/galatea/internal/utils/pagination"
	"github.com/oggyb/galatea/internal/utils/text"
)

const (
	defaultLimit        = 10
	maxLimit            = 50
	overlapWeight       = 0.05
	styleMatchWeight    = 0.05
	defaultCatalogLimit = 100
	defaultGeneratedAge = 25
	maxDescriptionLen   = 500
)

// Input carries companion attributes for create and update.
// On update, nil fields are left unchanged.
type Input struct {
	Name               *string   `json:"name"`
	Age                *int      `json:"age"`
	Bio                *string   `json:"bio"`
	Personality        *string   `json:"personality"`
	Interests          *[]string `json:"interests"`
	PersonalityTraits  *[]string `json:"personality_traits"`
	CommunicationStyle *string   `json:"communication_style"`
	LearningCapacity   *string   `json:"learning_capacity"`
	Backstory          *string   `json:"backstory"`
	FavoriteTopics     *[]string `json:"favorite_topics"`
	RelationshipGoals  *[]string `json:"relationship_goals"`
	ImageURL           *string   `json:"image_url"`
	CompatibilityScore *float64  `json:"compatibility_score"`
}

// Service serves the companion catalogue and per-user recommendations.
type Service struct {
	appCtx        *app.AppContext
	companionRepo *repository.CompanionRepository
	decisionRepo  *repository.DecisionRepository
	userRepo      *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		companionRepo: repository.NewCompanionRepository(appCtx.DB),
		decisionRepo:  repository.NewDecisionRepository(appCtx.DB),
		userRepo:      repository.NewUserRepository(appCtx.DB),
	}
}

// ListCompanions returns active companions, best compatibility first.
func (s *Service) ListCompanions(ctx context.Context, limit int) ([]db.Companion, error) {
	limit = pagination.ClampLimit(limit, defaultCatalogLimit, defaultCatalogLimit)
	out, err := s.companionRepo.ListActive(ctx, limit)
	if err != nil {
		s.appCtx.Logger.Error("ListCompanions failed", "err", err)
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// GetCompanion returns an active companion; inactive ones are NotFound.
func (s *Service) GetCompanion(ctx context.Context, id string) (*db.Companion, error) {
	c, err := s.companionRepo.FindActive(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("companion not found")
		}
		return nil, svcErr.Map(err)
	}
	return c, nil
}

// Recommended ranks the active companions the user has not swiped yet.
//
// Behavior:
//   - Companions outside the preferred age range are skipped.
//   - Score = compatibility_score
//   - + 0.05 per companion interest/trait found in the user's preferred
//     interests, preferred personalities or profile interests (case-insensitive)
//   - + 0.05 when the communication style matches the preference.
//   - Ties break by name, then id. limit defaults to 10, capped at 50.
//   - Results are cached per (user, limit) for 10 minutes; swipes and
//     preference updates drop the cache. Redis errors fall through to the DB.
func (s *Service) Recommended(ctx context.Context, userID string, limit int) ([]db.Companion, error) {
	s.appCtx.Logger.Debug("Recommended called", "user_id", userID, "limit", limit)
	limit = pagination.ClampLimit(limit, defaultLimit, maxLimit)

	var cached []db.Companion
	found, err := s.appCtx.RedisCache.GetRecommendations(ctx, userID, limit, &cached)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get_recommendations").Inc()
		s.appCtx.Logger.Warn("recommendation cache read failed", "user_id", userID, "err", err)
	}
	if found {
		return cached, nil
	}

	candidates, err := s.companionRepo.ListUnswiped(ctx, s.decisionRepo.SwipedCompanionIDs(userID))
	if err != nil {
		s.appCtx.Logger.Error("Recommended failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	prefs, err := s.userRepo.Preferences(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}
	profile, err := s.userRepo.Profile(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}

	out := Rank(candidates, prefs, profile, limit)
	if err := s.appCtx.RedisCache.SetRecommendations(ctx, userID, limit, out); err != nil {
		metrics.CacheErrors.WithLabelValues("set_recommendations").Inc()
	}
	return out, nil
}

// Rank orders candidates for a user. prefs and profile may be nil.
func Rank(candidates []db.Companion, prefs *db.UserPreferences, profile *db.UserProfile, limit int) []db.Companion {
	wanted := map[string]bool{}
	add := func(items []string) {
		for _, it := range items {
			if k := strings.ToLower(strings.TrimSpace(it)); k != "" {
				wanted[k] = true
			}
		}
	}
	minAge, maxAge, style := 0, 0, ""
	if prefs != nil {
		add(prefs.PreferredInterests)
		add(prefs.PreferredPersonalities)
		minAge, maxAge = prefs.AgeRangeMin, prefs.AgeRangeMax
		style = strings.ToLower(strings.TrimSpace(prefs.CommunicationStylePreference))
	}
	if profile != nil {
		add(profile.Interests)
	}

	type scored struct {
		c     db.Companion
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if minAge > 0 && c.Age < minAge {
			continue
		}
		if maxAge > 0 && c.Age > maxAge {
			continue
		}
		score := c.CompatibilityScore
		for _, it := range append(append([]string{}, c.Interests...), c.PersonalityTraits...) {
			if wanted[strings.ToLower(strings.TrimSpace(it))] {
				score += overlapWeight
			}
		}
		if style != "" && strings.Contains(strings.ToLower(c.CommunicationStyle), style) {
			score += styleMatchWeight
		}
		ranked = append(ranked, scored{c: c, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].c.Name != ranked[j].c.Name {
			return ranked[i].c.Name < ranked[j].c.Name
		}
		return ranked[i].c.ID < ranked[j].c.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]db.Companion, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}

// CreateCompanion validates and inserts a companion. Name and age are required.
func (s *Service) CreateCompanion(ctx context.Context, in Input) (*db.Companion, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, svcErr.InvalidArgument("name is required")
	}
	if in.Age == nil {
		return nil, svcErr.InvalidArgument("age is required")
	}
	fields, err := s.fields(in)
	if err != nil {
		return nil, err
	}

	c := &db.Companion{
		Interests:         db.StringList{},
		PersonalityTraits: db.StringList{},
		FavoriteTopics:    db.StringList{},
		RelationshipGoals: db.StringList{},
		IsActive:          true,
	}
	apply(c, fields)
	if err := s.companionRepo.Create(ctx, c); err != nil {
		s.appCtx.Logger.Error("CreateCompanion failed", "err", err)
		return nil, svcErr.Map(err)
	}
	return c, nil
}

// GenerateCompanion drafts a companion with the profile generator and stores it.
//
// Behavior:
//   - An empty description is replaced by completion.RandomDescription.
//   - The description is kept as the backstory when the draft has none.
//   - A missing or out-of-range age becomes 25; compatibility starts at 0.5.
//   - Generator failures return Upstream and store nothing.
func (s *Service) GenerateCompanion(ctx context.Context, description string) (*db.Companion, error) {
	if s.appCtx.Profiles == nil {
		return nil, svcErr.Upstream("profile generation unavailable", nil)
	}
	description = text.Clean(description)
	if len(description) > maxDescriptionLen {
		return nil, svcErr.InvalidArgument("description is too long")
	}
	if description == "" {
		description = completion.RandomDescription(nil)
	}

	draft, err := s.appCtx.Profiles.GenerateProfile(ctx, description)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, svcErr.Map(ctxErr)
		}
		s.appCtx.Logger.Error("profile generation failed", "err", err)
		return nil, svcErr.Upstream("profile generation failed", err)
	}

	age := draft.Age
	if age < 18 || age > 120 {
		age = defaultGeneratedAge
	}
	score := 0.5
	in := Input{
		Name:               &draft.Name,
		Age:                &age,
		Bio:                &draft.Bio,
		Backstory:          &description,
		CompatibilityScore: &score,
	}
	if draft.Personality != "" {
		in.Personality = &draft.Personality
	}
	if len(draft.Interests) > 0 {
		in.Interests = &draft.Interests
	}
	c, err := s.CreateCompanion(ctx, in)
	if err != nil {
		return nil, err
	}
	s.appCtx.Logger.Info("companion generated", "companion_id", c.ID, "name", c.Name)
	return c, nil
}

// UpdateCompanion applies the non-nil fields of in.
func (s *Service) UpdateCompanion(ctx context.Context, id string, in Input) (*db.Companion, error) {
	fields, err := s.fields(in)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.companionRepo.Update(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, svcErr.NotFound("companion not found")
			}
			return nil, svcErr.Map(err)
		}
	}
	c, err := s.companionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("companion not found")
		}
		return nil, svcErr.Map(err)
	}
	return c, nil
}

// DeactivateCompanion soft-deletes a companion. Existing matches and
// conversations keep referencing it.
func (s *Service) DeactivateCompanion(ctx context.Context, id string) error {
	if err := s.companionRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.NotFound("companion not found")
		}
		return svcErr.Map(err)
	}
	return nil
}

// UploadCompanionImage stores a new portrait and points image_url at it.
func (s *Service) UploadCompanionImage(ctx context.Context, id string, r io.Reader, size int64) (string, error) {
	if s.appCtx.Storage == nil {
		return "", svcErr.Upstream("object storage unavailable", storage.ErrStorageUnavailable)
	}
	c, err := s.companionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", svcErr.NotFound("companion not found")
		}
		return "", svcErr.Map(err)
	}

	contentType, body, err := storage.Sniff(r)
	if err != nil {
		return "", svcErr.InvalidArgument("unreadable image")
	}
	if err := storage.Validate(storage.BucketCompanionImages, contentType, size); err != nil {
		return "", svcErr.InvalidArgument(err.Error())
	}

	path := fmt.Sprintf("%s_%d.%s", c.ID, db.Now().Unix(), storage.Extension(contentType))
	url, err := s.appCtx.Storage.Upload(ctx, storage.BucketCompanionImages, path, body)
	if err != nil {
		s.appCtx.Logger.Error("companion image upload failed", "companion_id", id, "err", err)
		return "", svcErr.Upstream("image upload failed", err)
	}
	if err := s.companionRepo.Update(ctx, c.ID, map[string]any{"image_url": url}); err != nil {
		return "", svcErr.Map(err)
	}

	if old := storage.PathFromURL(storage.BucketCompanionImages, c.ImageURL); old != "" {
		if err := s.appCtx.Storage.Remove(ctx, storage.BucketCompanionImages, []string{old}); err != nil {
			s.appCtx.Logger.Warn("failed to remove previous companion image", "companion_id", id, "err", err)
		}
	}
	return url, nil
}

// fields converts Input into sanitised column updates.
func (s *Service) fields(in Input) (map[string]any, error) {
	f := map[string]any{}
	str := func(col string, v *string) {
		if v != nil {
			f[col] = text.Clean(*v)
		}
	}
	list := func(col string, v *[]string) {
		if v != nil {
			f[col] = db.StringList(text.CleanList(*v))
		}
	}

	str("name", in.Name)
	if name, ok := f["name"].(string); ok && name == "" {
		return nil, svcErr.InvalidArgument("name must not be empty")
	}
	if in.Age != nil {
		if *in.Age < 18 || *in.Age > 120 {
			return nil, svcErr.InvalidArgument("age must be between 18 and 120")
		}
		f["age"] = *in.Age
	}
	if in.CompatibilityScore != nil {
		if *in.CompatibilityScore < 0 || *in.CompatibilityScore > 1 {
			return nil, svcErr.InvalidArgument("compatibility_score must be between 0 and 1")
		}
		f["compatibility_score"] = *in.CompatibilityScore
	}
	str("bio", in.Bio)
	str("personality", in.Personality)
	str("communication_style", in.CommunicationStyle)
	str("learning_capacity", in.LearningCapacity)
	str("backstory", in.Backstory)
	str("image_url", in.ImageURL)
	list("interests", in.Interests)
	list("personality_traits", in.PersonalityTraits)
	list("favorite_topics", in.FavoriteTopics)
	list("relationship_goals", in.RelationshipGoals)
	return f, nil
}

func apply(c *db.Companion, f map[string]any) {
	for col, v := range f {
		switch col {
		case "name":
			c.Name = v.(string)
		case "age":
			c.Age = v.(int)
		case "compatibility_score":
			c.CompatibilityScore = v.(float64)
		case "bio":
			c.Bio = v.(string)
		case "personality":
			c.Personality = v.(string)
		case "communication_style":
			c.CommunicationStyle = v.(string)
		case "learning_capacity":
			c.LearningCapacity = v.(string)
		case "backstory":
			c.Backstory = v.(string)
		case "image_url":
			c.ImageURL = v.(string)
		case "interests":
			c.Interests = v.(db.StringList)
		case "personality_traits":
			c.PersonalityTraits = v.(db.StringList)
		case "favorite_topics":
			c.FavoriteTopics = v.(db.StringList)
		case "relationship_goals":
			c.RelationshipGoals = v.(db.StringList)
		}
	}
}
