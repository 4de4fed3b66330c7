package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/model"
)

var (
	// ErrHostNotFound is returned when no host has the requested IP
	ErrHostNotFound = errors.New("host not found")
	// ErrHostExists is returned when creating a host whose IP is taken
	ErrHostExists = errors.New("host already exists")
	// ErrOrphanDetail is returned when a channel detail references an unknown summary
	ErrOrphanDetail = errors.New("channel detail references unknown summary")
)

// MutateFunc edits a host in place and returns the change records to append
// in the same atomic step. Returning an error aborts the whole mutation.
type MutateFunc func(h *model.Host) ([]model.ChangeRecord, error)

// Store defines the data access used by the inventory service.
// List methods return snapshots in the collection's natural order; callers
// may keep and reorder them freely.
type Store interface {
	// ListHosts returns all hosts, soft-deleted included
	ListHosts(ctx context.Context) ([]model.Host, error)

	// GetHost returns the host with the given IP or ErrHostNotFound
	GetHost(ctx context.Context, ip string) (model.Host, error)

	// CreateHost stores a new host at the head of the natural order
	CreateHost(ctx context.Context, host model.Host) error

	// MutateHost runs fn on the current host and persists the result together
	// with the returned change records. Operations on the same IP are serialized.
	MutateHost(ctx context.Context, ip string, fn MutateFunc) (model.Host, error)

	ListInefficiencies(ctx context.Context) ([]model.InefficiencyRecord, error)
	ListMetrics(ctx context.Context) ([]model.MetricRecord, error)
	ListChannelSummaries(ctx context.Context) ([]model.ChannelSummary, error)
	ListChannelDetails(ctx context.Context) ([]model.ChannelDetail, error)
	ListChangeRecords(ctx context.Context) ([]model.ChangeRecord, error)

	// Load replaces the store contents with the dataset
	Load(ctx context.Context, ds *model.Dataset) error

	// Close releases the backend connection
	Close() error
}

// validateDataset checks the reporting invariants a dataset must satisfy
// before any backend accepts it
func validateDataset(ds *model.Dataset) error {
	ips := make(map[string]struct{}, len(ds.Hosts))
	for _, h := range ds.Hosts {
		if h.IP == "" {
			return fmt.Errorf("host without ip")
		}
		if _, dup := ips[h.IP]; dup {
			return fmt.Errorf("%w: %s", ErrHostExists, h.IP)
		}
		ips[h.IP] = struct{}{}
	}

	summaries := make(map[string]struct{}, len(ds.ChannelSummaries))
	for _, s := range ds.ChannelSummaries {
		if _, dup := summaries[s.ID]; dup {
			return fmt.Errorf("duplicate channel summary %s", s.ID)
		}
		if err := s.TaskCounts.Validate(); err != nil {
			return fmt.Errorf("channel summary %s: %w", s.ID, err)
		}
		summaries[s.ID] = struct{}{}
	}

	for _, d := range ds.ChannelDetails {
		if _, ok := summaries[d.ParentID]; !ok {
			return fmt.Errorf("%w: %s", ErrOrphanDetail, d.ParentID)
		}
		if err := d.TaskCounts.Validate(); err != nil {
			return fmt.Errorf("channel detail %s/%s: %w", d.ParentID, d.Business, err)
		}
	}
	return nil
}

// NewStore opens the backend selected by cfg.Driver
func NewStore(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case config.DriverEtcd:
		return NewEtcdStore(cfg.Etcd, logger)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
