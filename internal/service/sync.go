package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kirychukyurii/hostdesk/internal/concurrent"
	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/repository"
)

// SyncOperator is recorded on change records written by the inventory sync
const SyncOperator = "nomad-sync"

// syncConcurrency caps the number of clusters listed at once
const syncConcurrency = 4

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostdesk_sync_runs_total",
			Help: "Inventory sync runs by result",
		},
		[]string{"result"},
	)

	syncHostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostdesk_sync_hosts_total",
			Help: "Hosts processed by the inventory sync by action",
		},
		[]string{"action"},
	)

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hostdesk_sync_duration_seconds",
		Help:    "Inventory sync duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// SyncResult summarizes one inventory sync run
type SyncResult struct {
	Clusters  int               `json:"clusters"`
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Errors    map[string]string `json:"errors,omitempty"` // cluster -> error
}

// errUnchanged aborts a sync mutation that would not modify the host
var errUnchanged = errors.New("host unchanged")

// SyncInventory pulls client nodes from every configured cluster into the
// host table. Unknown nodes become new hosts; known active hosts get their
// resources and device status refreshed. Soft-deleted hosts are left alone.
// A failing cluster is reported in the result and does not stop the others.
func (s *inventoryService) SyncInventory(ctx context.Context) (SyncResult, error) {
	if s.nodes == nil {
		return SyncResult{}, fmt.Errorf("%w: inventory sync is not configured", ErrConflict)
	}

	start := time.Now()
	defer func() {
		syncDuration.Observe(time.Since(start).Seconds())
	}()

	ctx = WithOperator(ctx, SyncOperator)
	names := s.nodes.ClusterNames()
	result := SyncResult{Clusters: len(names)}

	listed := concurrent.Map(ctx, names, syncConcurrency, s.nodes.ListHosts)
	for _, r := range listed {
		cluster := names[r.Index]
		if r.Error != nil {
			if result.Errors == nil {
				result.Errors = make(map[string]string)
			}
			result.Errors[cluster] = r.Error.Error()
			s.logger.Error("failed to list cluster nodes",
				slog.String("cluster", cluster),
				slog.String("error", r.Error.Error()),
			)
			continue
		}

		for _, node := range r.Value {
			action, err := s.syncHost(ctx, node)
			if err != nil {
				// Store failures affect every remaining host; stop here
				syncRunsTotal.WithLabelValues("error").Inc()
				return result, err
			}
			syncHostsTotal.WithLabelValues(action).Inc()
			switch action {
			case "created":
				result.Created++
			case "updated":
				result.Updated++
			default:
				result.Unchanged++
			}
		}
	}

	if result.Created > 0 || result.Updated > 0 {
		s.invalidate()
	}

	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	syncRunsTotal.WithLabelValues(status).Inc()

	s.logger.Info("inventory sync finished",
		slog.Int("clusters", result.Clusters),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("failed_clusters", len(result.Errors)),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// syncHost merges one node into the store and reports what happened to it
func (s *inventoryService) syncHost(ctx context.Context, node model.Host) (string, error) {
	_, err := s.store.MutateHost(ctx, node.IP, func(h *model.Host) ([]model.ChangeRecord, error) {
		if !h.IsActive() {
			return nil, errUnchanged
		}
		before := *h
		refreshFromNode(h, node)
		if *h == before {
			return nil, errUnchanged
		}
		return s.stamp(ctx, model.StatusChanges(&before, h), "inventory sync"), nil
	})

	switch {
	case err == nil:
		return "updated", nil
	case errors.Is(err, errUnchanged):
		return "unchanged", nil
	case errors.Is(err, repository.ErrHostNotFound):
		err = s.store.CreateHost(ctx, node)
		if errors.Is(err, repository.ErrHostExists) {
			// Added concurrently since the lookup
			return "unchanged", nil
		}
		if err != nil {
			return "", classify(err)
		}
		return "created", nil
	}
	return "", classify(err)
}

// refreshFromNode copies the node-owned fields onto an existing host.
// Ownership, purpose and management status stay as administered.
func refreshFromNode(h *model.Host, node model.Host) {
	h.Vendor = node.Vendor
	h.Region = node.Region
	h.OS = node.OS
	h.CPU = node.CPU
	h.Memory = node.Memory
	h.Disk = node.Disk
	h.Bandwidth = node.Bandwidth
	h.DeviceStatus = node.DeviceStatus
}
