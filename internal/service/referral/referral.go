// Package referral awards a one-time credit to a user's referrer when the
// referred user buys their first subscription. Best-effort: failures are
// logged, never propagated to the subscription flow.
package referral

import (
	"context"
	"log/slog"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/metrics"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/store"
)

type Recorder interface {
	Record(ctx context.Context, eventType, status string, externalRef *string, payload map[string]any) error
}

type Service struct {
	store     store.Store
	credits   int
	analytics Recorder
	log       *slog.Logger
}

func New(st store.Store, credits int, analytics Recorder, log *slog.Logger) *Service {
	return &Service{store: st, credits: credits, analytics: analytics, log: log}
}

// MaybeAward credits the referrer exactly once: only when the referred user
// was created with a referrer, the pair has not been awarded yet, and this is
// the referred user's first-ever subscription (total count == 1 at check
// time, not a flag).
func (s *Service) MaybeAward(ctx context.Context, referredUserID, subscriptionID int64) {
	var awarded bool
	var referrerID int64

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		referred, err := tx.Users().GetByID(ctx, referredUserID)
		if err != nil {
			return err
		}
		if referred.ReferredBy == nil {
			return nil
		}
		referrerID = *referred.ReferredBy

		count, err := tx.Subscriptions().CountByUser(ctx, referredUserID)
		if err != nil {
			return err
		}
		if count != 1 {
			return nil
		}

		fresh, err := tx.Referrals().Create(ctx, referrerID, referredUserID, s.credits, &subscriptionID)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		if err := tx.Users().AddCredits(ctx, referrerID, s.credits); err != nil {
			return err
		}
		awarded = true
		return nil
	})
	if err != nil {
		s.log.Error("referral award failed", "referred_user_id", referredUserID, "err", err)
		return
	}
	if !awarded {
		return
	}

	metrics.ReferralAwards.Inc()
	s.log.Info("referral credit awarded", "referrer_id", referrerID, "referred_user_id", referredUserID, "credits", s.credits)
	if s.analytics != nil {
		if err := s.analytics.Record(ctx, "referral_awarded", "success", nil, map[string]any{
			"referrer_id":      referrerID,
			"referred_user_id": referredUserID,
			"credits":          s.credits,
		}); err != nil {
			s.log.Error("analytics record failed", "err", err)
		}
	}
}
