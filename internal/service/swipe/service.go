package swipe

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/metrics"
	"github.com/oggyb/galatea/internal/repository"
)

// AlreadySwipedMessage is the error text of a repeated decision.
const AlreadySwipedMessage = "already swiped"

// SwipeResult is the outcome of one decision.
// A repeated decision is reported here with Success=false, not as an error.
// UserStats holds the counters after a recorded decision; it is omitted
// when they could not be read back.
type SwipeResult struct {
	Success        bool          `json:"success"`
	IsMatch        bool          `json:"isMatch"`
	ConversationID string        `json:"conversationId,omitempty"`
	Error          string        `json:"error,omitempty"`
	UserStats      *db.UserStats `json:"userStats,omitempty"`
}

// BatchItem is the per-companion outcome of SubmitDecisions.
type BatchItem struct {
	CompanionID string `json:"companionId"`
	SwipeResult
}

// Service implements the swipe/match engine.
type Service struct {
	appCtx        *app.AppContext
	decisionRepo  *repository.DecisionRepository
	matchRepo     *repository.MatchRepository
	companionRepo *repository.CompanionRepository
	userRepo      *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		decisionRepo:  repository.NewDecisionRepository(appCtx.DB),
		matchRepo:     repository.NewMatchRepository(appCtx.DB),
		companionRepo: repository.NewCompanionRepository(appCtx.DB),
		userRepo:      repository.NewUserRepository(appCtx.DB),
	}
}

// ParseDecision accepts the decision names plus the accepted/rejected aliases.
func ParseDecision(s string) (db.Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "accepted":
		return db.DecisionLike, true
	case "pass", "rejected":
		return db.DecisionPass, true
	case "super_like", "superlike":
		return db.DecisionSuperLike, true
	}
	return "", false
}

// RecordSwipe stores the user's decision on a companion and applies its effects.
//
// Behavior:
//   - Validates ids and decision; the companion must exist and be active.
//   - A pair that already has a decision returns Success=false with
//     Error "already swiped" and changes nothing.
//   - like/super_like ensures the Match and an active Conversation bound to it.
//   - pass records the decision only.
//   - Decision, match, conversation and stats commit in one transaction.
//   - After commit the companion like counter is bumped and the user's
//     recommendation cache dropped; cache failures are only logged.
//   - A recorded decision carries the user's updated stats.
//
// Example:
//
//	res, err := svc.RecordSwipe(ctx, userID, companionID, db.DecisionLike)
//	// res == SwipeResult{Success: true, IsMatch: true, ConversationID: "..."}
func (s *Service) RecordSwipe(ctx context.Context, userID, companionID string, decision db.Decision) (SwipeResult, error) {
	s.appCtx.Logger.Debug("RecordSwipe called", "user_id", userID, "companion_id", companionID, "decision", decision)

	if userID == "" {
		return SwipeResult{}, svcErr.Unauthenticated("user id is required")
	}
	if strings.TrimSpace(companionID) == "" {
		return SwipeResult{}, svcErr.InvalidArgument("companion_id is required")
	}
	if !decision.Valid() {
		return SwipeResult{}, svcErr.InvalidArgument("decision must be one of like, pass, super_like")
	}

	var result SwipeResult
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repository.NewCompanionRepository(tx).FindActive(ctx, companionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("companion not found")
			}
			return err
		}

		d := &db.SwipeDecision{UserID: userID, CompanionID: companionID, Decision: decision}
		if err := repository.NewDecisionRepository(tx).Create(ctx, d); err != nil {
			return err
		}

		delta := repository.StatsDelta{Swipes: 1}
		switch decision {
		case db.DecisionLike:
			delta.Likes = 1
		case db.DecisionSuperLike:
			delta.SuperLikes = 1
		case db.DecisionPass:
			delta.Passes = 1
		}

		result = SwipeResult{Success: true}
		if decision.Positive() {
			match, created, err := repository.NewMatchRepository(tx).Ensure(ctx, userID, companionID, d.CreatedAt)
			if err != nil {
				return err
			}
			if created {
				delta.Matches = 1
			}

			conv, convCreated, err := repository.NewConversationRepository(tx).Ensure(ctx, match)
			if err != nil {
				return err
			}
			if convCreated {
				delta.Conversations = 1
			}
			result.IsMatch = true
			result.ConversationID = conv.ID
		}

		return repository.NewUserRepository(tx).IncrementStats(ctx, userID, delta)
	})

	if errors.Is(err, repository.ErrDuplicateDecision) {
		metrics.Swipes.WithLabelValues(string(decision), "duplicate").Inc()
		return SwipeResult{Success: false, Error: AlreadySwipedMessage}, nil
	}
	if err != nil {
		metrics.Swipes.WithLabelValues(string(decision), "error").Inc()
		if svcErr.KindOf(err) != svcErr.KindNotFound {
			s.appCtx.Logger.Error("RecordSwipe failed", "user_id", userID, "companion_id", companionID, "err", err)
		}
		return SwipeResult{}, svcErr.Map(err)
	}

	outcome := "recorded"
	if result.IsMatch {
		outcome = "match"
	}
	metrics.Swipes.WithLabelValues(string(decision), outcome).Inc()
	s.afterSwipe(ctx, userID, companionID, decision)

	if stats, err := s.userRepo.Stats(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to read stats after swipe", "user_id", userID, "err", err)
	} else {
		result.UserStats = stats
	}

	s.appCtx.Logger.Debug("RecordSwipe result", "is_match", result.IsMatch, "conversation_id", result.ConversationID)
	return result, nil
}

func (s *Service) afterSwipe(ctx context.Context, userID, companionID string, decision db.Decision) {
	if s.appCtx.RedisCache == nil {
		return
	}
	if decision.Positive() {
		if err := s.appCtx.RedisCache.IncrLikeCount(ctx, companionID); err != nil {
			metrics.CacheErrors.WithLabelValues("incr_like_count").Inc()
			s.appCtx.Logger.Warn("failed to bump like counter", "companion_id", companionID, "err", err)
		}
	}
	if err := s.appCtx.RedisCache.InvalidateRecommendations(ctx, userID); err != nil {
		metrics.CacheErrors.WithLabelValues("invalidate_recommendations").Inc()
		s.appCtx.Logger.Warn("failed to drop recommendations", "user_id", userID, "err", err)
	}
}

// SubmitDecisions records a batch of decisions keyed by companion id.
//
// Behavior:
//   - Items run in companion-id order, each in its own transaction.
//   - One item's failure never aborts the others; it is reported in its row.
//   - Unknown decision strings are reported per item.
func (s *Service) SubmitDecisions(ctx context.Context, userID string, decisions map[string]string) ([]BatchItem, error) {
	s.appCtx.Logger.Debug("SubmitDecisions called", "user_id", userID, "count", len(decisions))

	if userID == "" {
		return nil, svcErr.Unauthenticated("user id is required")
	}
	if len(decisions) == 0 {
		return nil, svcErr.InvalidArgument("decisions must not be empty")
	}

	ids := make([]string, 0, len(decisions))
	for id := range decisions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]BatchItem, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, svcErr.Map(err)
		}
		item := BatchItem{CompanionID: id}
		decision, ok := ParseDecision(decisions[id])
		if !ok {
			item.Error = "invalid decision"
			out = append(out, item)
			continue
		}
		res, err := s.RecordSwipe(ctx, userID, id, decision)
		if err != nil {
			item.Error = svcErr.PublicMessage(err)
		} else {
			item.SwipeResult = res
		}
		out = append(out, item)
	}
	return out, nil
}

// HasSwiped reports whether the user already decided on the companion.
func (s *Service) HasSwiped(ctx context.Context, userID, companionID string) (bool, error) {
	d, err := s.decisionRepo.Find(ctx, userID, companionID)
	if err != nil {
		return false, svcErr.Map(err)
	}
	return d != nil, nil
}

// ListDecisions returns the user's decisions, newest first.
func (s *Service) ListDecisions(ctx context.Context, userID string, limit int) ([]db.SwipeDecision, error) {
	out, err := s.decisionRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		s.appCtx.Logger.Error("ListDecisions failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// ListMatches returns the user's active matches with companion details, newest first.
func (s *Service) ListMatches(ctx context.Context, userID string) ([]db.Match, error) {
	out, err := s.matchRepo.ListActive(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("ListMatches failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return out, nil
}

// DeactivateMatch turns an owned match off and archives its conversation,
// so no active conversation ever points at an inactive match.
func (s *Service) DeactivateMatch(ctx context.Context, userID, matchID string) error {
	s.appCtx.Logger.Debug("DeactivateMatch called", "user_id", userID, "match_id", matchID)

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repository.NewMatchRepository(tx).FindForUser(ctx, userID, matchID)
		if err != nil {
			return err
		}
		if err := repository.NewMatchRepository(tx).Deactivate(ctx, m.ID); err != nil {
			return err
		}
		return repository.NewConversationRepository(tx).ArchiveByMatch(ctx, m.ID)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("match not found")
	}
	return svcErr.Map(err)
}

// CompanionLikeCount returns how many users liked or super-liked the companion.
// Cache-first strategy:
//  1. Attempts to read from Redis (companion:likes:<id>).
//  2. On a miss or Redis error, counts in the database.
//  3. Stores the fresh count with a 1h TTL.
func (s *Service) CompanionLikeCount(ctx context.Context, companionID string) (int64, error) {
	s.appCtx.Logger.Debug("CompanionLikeCount called", "companion_id", companionID)

	if _, err := s.companionRepo.FindActive(ctx, companionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, svcErr.NotFound("companion not found")
		}
		return 0, svcErr.Map(err)
	}

	n, found, err := s.appCtx.RedisCache.GetLikeCount(ctx, companionID)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get_like_count").Inc()
		s.appCtx.Logger.Warn("like counter read failed", "companion_id", companionID, "err", err)
	}
	if found {
		return n, nil
	}

	count, err := s.decisionRepo.CountPositive(ctx, companionID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetLikeCount(ctx, companionID, count); err != nil {
		metrics.CacheErrors.WithLabelValues("set_like_count").Inc()
	}
	return count, nil
}
