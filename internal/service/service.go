package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirychukyurii/hostdesk/internal/cache"
	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/repository"
)

// InventoryService defines the operations exposed to the API
type InventoryService interface {
	QueryHosts(ctx context.Context, q HostQuery) (model.Page[model.Host], error)
	ExportHosts(ctx context.Context, q HostQuery) ([]model.Host, error)
	GetHost(ctx context.Context, ip string) (model.Host, error)
	QueryPool(ctx context.Context, q PoolQuery) (model.Page[model.Host], error)
	QueryInefficiencies(ctx context.Context, q InefficiencyQuery) (model.Page[model.InefficiencyView], error)
	QueryMetrics(ctx context.Context, q MetricQuery) (model.Page[model.MetricView], error)
	QueryChannelSummaries(ctx context.Context, q ChannelSummaryQuery) (model.Page[model.ChannelSummary], error)
	QueryChannelDetails(ctx context.Context, q ChannelDetailQuery) (model.Page[model.ChannelDetail], error)
	GetChannelDetails(ctx context.Context, summaryID string, q ChannelDetailQuery) (model.Page[model.ChannelDetail], error)
	QueryChanges(ctx context.Context, q ChangeQuery) (model.Page[model.ChangeView], error)
	DashboardStats(ctx context.Context) (model.DashboardStats, error)

	AddHost(ctx context.Context, req model.NewHost) (model.Host, error)
	UpdateHost(ctx context.Context, ip string, patch model.HostPatch) (model.Host, error)
	DeleteHost(ctx context.Context, ip string) (model.Host, error)
	RestoreHostStatus(ctx context.Context, ip string) (model.Host, error)
	ApplyFromPool(ctx context.Context, ip string, req model.PoolApplication) (model.Host, error)

	SyncInventory(ctx context.Context) (SyncResult, error)
}

// Option configures an inventoryService
type Option func(*inventoryService)

// WithNodeSource enables SyncInventory against the given node source
func WithNodeSource(src repository.NodeSource) Option {
	return func(s *inventoryService) {
		s.nodes = src
	}
}

// WithIPGenerator replaces the generator minting IPs for added hosts
func WithIPGenerator(gen func() string) Option {
	return func(s *inventoryService) {
		s.nextIP = gen
	}
}

// WithClock replaces the time source used to date change records
func WithClock(now func() time.Time) Option {
	return func(s *inventoryService) {
		s.now = now
	}
}

// inventoryService implements InventoryService interface
type inventoryService struct {
	store    repository.Store
	stats    cache.Cache[model.DashboardStats]
	nodes    repository.NodeSource
	queryCfg config.QueryConfig
	validate *validator.Validate
	logger   *slog.Logger
	nextIP   func() string
	now      func() time.Time
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	store repository.Store,
	stats cache.Cache[model.DashboardStats],
	queryCfg config.QueryConfig,
	logger *slog.Logger,
	opts ...Option,
) InventoryService {
	s := &inventoryService{
		store:    store,
		stats:    stats,
		queryCfg: queryCfg,
		validate: newValidator(),
		logger:   logger,
		nextIP:   randomIP,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomIP mints an address in 10.0.0.0/8 avoiding network and broadcast hosts
func randomIP() string {
	return fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254))
}

// today returns the calendar date change records are stamped with
func (s *inventoryService) today() model.Date {
	return model.DateOf(s.now())
}

// invalidate drops cached aggregates after a successful mutation
func (s *inventoryService) invalidate() {
	s.stats.Delete(cache.KeyDashboardStats)
}

type operatorKey struct{}

// DefaultOperator is recorded when no operator identity is known
const DefaultOperator = "system"

// WithOperator returns a context recording op as the acting operator
func WithOperator(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFrom returns the operator stored in ctx or DefaultOperator
func OperatorFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok && op != "" {
		return op
	}
	return DefaultOperator
}
