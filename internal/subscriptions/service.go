package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geocoder89/certhub/internal/appstore"
	"github.com/geocoder89/certhub/internal/cache"
	"github.com/geocoder89/certhub/internal/domain/subscription"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/utils"
)

type Repo interface {
	InsertTrial(ctx context.Context, s subscription.Subscription) error
	InsertPurchase(ctx context.Context, s subscription.Subscription) error
	ExistsByTransaction(ctx context.Context, userID, transactionID string) (bool, error)
	FindTrial(ctx context.Context, userID string) (*subscription.Subscription, error)
	Active(ctx context.Context, userID string, now time.Time) (*subscription.Subscription, error)
	LatestNonTrial(ctx context.Context, userID string) (*subscription.Subscription, error)
}

type ReceiptVerifier interface {
	Verify(ctx context.Context, receiptData string) (*appstore.Receipt, error)
}

type Service struct {
	repo     Repo
	verifier ReceiptVerifier
	cache    cache.Store
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires the reconciliation flow. A nil cache disables status caching.
func NewService(repo Repo, verifier ReceiptVerifier, store cache.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		verifier: verifier,
		cache:    store,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records a trial or the purchases on an App Store receipt and
// returns the refreshed status.
func (s *Service) Create(ctx context.Context, userID string, req subscription.CreateRequest) (subscription.Status, error) {
	var err error

	switch {
	case req.IsTrial:
		err = s.createTrial(ctx, userID, req)
	case req.Platform == subscription.PlatformIOS:
		err = s.reconcileIOS(ctx, userID, req)
	case req.Platform == subscription.PlatformAndroid:
		err = subscription.ErrPlatformUnsupported
	default:
		err = fmt.Errorf("%w: %s", subscription.ErrInvalidPlatform, req.Platform)
	}

	if err != nil {
		return subscription.Status{}, err
	}

	s.invalidate(ctx, userID)

	return s.Status(ctx, userID)
}

func (s *Service) createTrial(ctx context.Context, userID string, req subscription.CreateRequest) error {
	existing, err := s.repo.FindTrial(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return subscription.ErrTrialExists
	}

	// the partial unique index still guards concurrent requests
	return s.repo.InsertTrial(ctx, subscription.NewTrial(userID, req, s.now()))
}

func (s *Service) reconcileIOS(ctx context.Context, userID string, req subscription.CreateRequest) error {
	receipt, err := s.verifier.Verify(ctx, req.ReceiptData)
	if err != nil {
		if errors.Is(err, appstore.ErrReceiptInvalid) {
			return subscription.ErrReceiptInvalid
		}
		return err
	}

	inserted := 0
	for _, p := range receipt.InApp {
		ok, err := s.recordPurchase(ctx, userID, req, p)
		if err != nil {
			return err
		}
		if ok {
			inserted++
		}
	}

	s.log.InfoContext(ctx, "receipt_reconciled",
		"user_id", userID,
		"line_items", len(receipt.InApp),
		"inserted", inserted,
	)

	return nil
}

// recordPurchase reports whether a new row was written.
func (s *Service) recordPurchase(ctx context.Context, userID string, req subscription.CreateRequest, p appstore.Purchase) (bool, error) {
	if p.TransactionID == "" {
		s.log.WarnContext(ctx, "purchase_without_transaction", "user_id", userID, "product_id", p.ProductID)
		return false, nil
	}

	exists, err := s.repo.ExistsByTransaction(ctx, userID, p.TransactionID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	duration, ok := subscription.ProductDuration(p.ProductID)
	if !ok {
		s.log.WarnContext(ctx, "unknown_product", "user_id", userID, "product_id", p.ProductID)
		return false, nil
	}

	purchasedAt, err := p.PurchasedAt()
	if err != nil {
		s.log.WarnContext(ctx, "bad_purchase_date", "user_id", userID, observability.Err(err))
		return false, nil
	}

	err = s.repo.InsertPurchase(ctx, subscription.NewPurchase(userID, req, p.TransactionID, purchasedAt.Add(duration), s.now()))
	if errors.Is(err, subscription.ErrAlreadyRecorded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// statusGenTTL outlives any status entry, so a counter never resets while
// entries written under an older generation can still be read.
const statusGenTTL = 24 * time.Hour

// Status returns the active, trial and latest paid records for a user.
// Cached results live under the user's current generation, and Create bumps
// the generation, so a read that raced a create can only fill a retired key.
func (s *Service) Status(ctx context.Context, userID string) (subscription.Status, error) {
	gen, cacheable := s.generation(ctx, userID)

	if cacheable {
		cached, ok, err := cache.GetJSON[subscription.Status](ctx, s.cache, utils.SubscriptionStatusCacheKey(userID, gen))
		if err != nil {
			s.log.WarnContext(ctx, "status_cache_get_failed", "user_id", userID, observability.Err(err))
		}
		if ok {
			return cached, nil
		}
	}

	var st subscription.Status
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		st.ActiveSubscription, err = s.repo.Active(gctx, userID, now)
		return err
	})
	g.Go(func() error {
		var err error
		st.TrialSubscription, err = s.repo.FindTrial(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		st.LatestSubscription, err = s.repo.LatestNonTrial(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return subscription.Status{}, err
	}

	st.FreeTrialEligible = st.TrialSubscription == nil

	if cacheable {
		if err := cache.SetJSON(ctx, s.cache, utils.SubscriptionStatusCacheKey(userID, gen), st); err != nil {
			s.log.WarnContext(ctx, "status_cache_set_failed", "user_id", userID, observability.Err(err))
		}
	}

	return st, nil
}

// generation reads the user's status generation. A missing counter is
// generation zero. false means the cache should be bypassed.
func (s *Service) generation(ctx context.Context, userID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	raw, ok, err := s.cache.Get(ctx, utils.SubscriptionStatusGenKey(userID))
	if err != nil {
		s.log.WarnContext(ctx, "status_cache_gen_failed", "user_id", userID, observability.Err(err))
		return 0, false
	}
	if !ok {
		return 0, true
	}

	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		s.log.WarnContext(ctx, "status_cache_gen_failed", "user_id", userID, observability.Err(err))
		return 0, false
	}
	return gen, true
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, utils.SubscriptionStatusGenKey(userID), statusGenTTL); err != nil {
		s.log.WarnContext(ctx, "status_cache_invalidate_failed", "user_id", userID, observability.Err(err))
	}
}
