package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/export"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// ReportCaches holds the per-payload caches. Any of them may be nil.
type ReportCaches struct {
	Dashboard cache.Cache[core.DashboardSummary]
	Summary   cache.Cache[core.KindSummary]
	Overview  cache.Cache[core.Overview]
	Insights  cache.Cache[core.Insights]
}

type ReportConfig struct {
	LatestLimit int
	RecentLimit int
	DefaultDays int
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{LatestLimit: 5, RecentLimit: 10, DefaultDays: 30}
}

// ReportService computes the read-only aggregates behind the screens.
type ReportService struct {
	repo   *storage.Repository
	caches ReportCaches
	cfg    ReportConfig
	logger *log.Logger
	now    func() time.Time
}

func NewReportService(repo *storage.Repository, caches ReportCaches, cfg ReportConfig, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	def := DefaultReportConfig()
	if cfg.LatestLimit < 1 {
		cfg.LatestLimit = def.LatestLimit
	}
	if cfg.RecentLimit < 1 {
		cfg.RecentLimit = def.RecentLimit
	}
	if cfg.DefaultDays < 1 {
		cfg.DefaultDays = def.DefaultDays
	}
	return &ReportService{
		repo:   repo,
		caches: caches,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

func rangeKey(userID int64, kind core.Kind, r core.DateRange) string {
	return fmt.Sprintf("%s%s:%s:%s", userPrefix(userID), kind, r.Start, r.End)
}

// Invalidate drops every cached report of userID.
func (s *ReportService) Invalidate(ctx context.Context, userID int64) {
	prefix := userPrefix(userID)
	if s.caches.Dashboard != nil {
		s.caches.Dashboard.DeletePrefix(ctx, prefix)
	}
	if s.caches.Summary != nil {
		s.caches.Summary.DeletePrefix(ctx, prefix)
	}
	if s.caches.Overview != nil {
		s.caches.Overview.DeletePrefix(ctx, prefix)
	}
	if s.caches.Insights != nil {
		s.caches.Insights.DeletePrefix(ctx, prefix)
	}
}

// DefaultRange is the last DefaultDays days ending today.
func (s *ReportService) DefaultRange() core.DateRange {
	return s.LastDays(s.cfg.DefaultDays)
}

// LastDays is the n-day window ending today.
func (s *ReportService) LastDays(n int) core.DateRange {
	return core.LastNDays(s.now(), n)
}

// Dashboard loads the user, both ledgers and the installments concurrently
// and combines them once all have arrived.
func (s *ReportService) Dashboard(ctx context.Context, userID int64) (core.DashboardSummary, error) {
	key := userPrefix(userID) + "dashboard"
	if s.caches.Dashboard != nil {
		if d, ok := s.caches.Dashboard.Get(ctx, key); ok {
			return d, nil
		}
	}

	var (
		user         core.User
		incomes      []core.Transaction
		expenses     []core.Transaction
		installments []core.Installment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.repo.GetUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.repo.ListTransactions(gctx, userID, core.Income, nil)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.repo.ListTransactions(gctx, userID, core.Expense, nil)
		return err
	})
	g.Go(func() (err error) {
		installments, err = s.repo.ListInstallments(gctx, userID, core.StatusActive)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load dashboard: %w", err)
	}

	d := core.BuildDashboard(user.Name, incomes, expenses, installments, s.cfg.LatestLimit)
	if s.caches.Dashboard != nil {
		s.caches.Dashboard.Set(ctx, key, d)
	}
	s.logger.DebugContext(ctx, "Dashboard computed",
		log.FieldUserID, userID,
		log.FieldStatus, d.InstallmentSummary.Status)
	return d, nil
}

func (s *ReportService) Summary(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.KindSummary, error) {
	key := rangeKey(userID, kind, r) + ":summary"
	if s.caches.Summary != nil {
		if v, ok := s.caches.Summary.Get(ctx, key); ok {
			return v, nil
		}
	}
	txs, err := s.rangeTransactions(ctx, userID, kind, r)
	if err != nil {
		return core.KindSummary{}, err
	}
	v := core.BuildSummary(txs, r, s.cfg.RecentLimit)
	if s.caches.Summary != nil {
		s.caches.Summary.Set(ctx, key, v)
	}
	return v, nil
}

func (s *ReportService) Overview(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.Overview, error) {
	key := rangeKey(userID, kind, r) + ":overview"
	if s.caches.Overview != nil {
		if v, ok := s.caches.Overview.Get(ctx, key); ok {
			return v, nil
		}
	}
	txs, err := s.rangeTransactions(ctx, userID, kind, r)
	if err != nil {
		return core.Overview{}, err
	}
	v, err := core.BuildOverview(txs, r)
	if err != nil {
		return core.Overview{}, err
	}
	if s.caches.Overview != nil {
		s.caches.Overview.Set(ctx, key, v)
	}
	return v, nil
}

func (s *ReportService) Insights(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) (core.Insights, error) {
	key := rangeKey(userID, kind, r) + ":insights"
	if s.caches.Insights != nil {
		if v, ok := s.caches.Insights.Get(ctx, key); ok {
			return v, nil
		}
	}
	txs, err := s.rangeTransactions(ctx, userID, kind, r)
	if err != nil {
		return core.Insights{}, err
	}
	v, err := core.BuildInsights(txs, r)
	if err != nil {
		return core.Insights{}, err
	}
	if s.caches.Insights != nil {
		s.caches.Insights.Set(ctx, key, v)
	}
	return v, nil
}

// Statement gathers everything an export needs for r.
func (s *ReportService) Statement(ctx context.Context, userID int64, r core.DateRange) (export.Statement, error) {
	if _, err := core.NewDateRange(r.Start, r.End); err != nil {
		return export.Statement{}, err
	}
	var (
		user         core.User
		incomes      []core.Transaction
		expenses     []core.Transaction
		installments []core.Installment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.repo.GetUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.repo.ListTransactions(gctx, userID, core.Income, &r)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.repo.ListTransactions(gctx, userID, core.Expense, &r)
		return err
	})
	g.Go(func() (err error) {
		installments, err = s.repo.ListInstallments(gctx, userID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return export.Statement{}, fmt.Errorf("load statement: %w", err)
	}

	now := s.now()
	today := core.DateOf(now)
	views := make([]core.InstallmentView, len(installments))
	for i, inst := range installments {
		views[i] = inst.View(today)
	}
	txs := append(incomes, expenses...)
	return export.NewStatement(user.Name, r, txs, views, now), nil
}

func (s *ReportService) rangeTransactions(ctx context.Context, userID int64, kind core.Kind, r core.DateRange) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, &core.ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if _, err := core.NewDateRange(r.Start, r.End); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, userID, kind, &r)
}
