package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

// memoryStore keeps every collection in process memory
type memoryStore struct {
	mu             sync.RWMutex
	hosts          []model.Host
	index          map[string]int // ip -> position in hosts
	inefficiencies []model.InefficiencyRecord
	metrics        []model.MetricRecord
	summaries      []model.ChannelSummary
	details        []model.ChannelDetail
	changes        []model.ChangeRecord
	nextSeq        int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		index: make(map[string]int),
	}
}

func (m *memoryStore) ListHosts(ctx context.Context) ([]model.Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.hosts), nil
}

func (m *memoryStore) GetHost(ctx context.Context, ip string) (model.Host, error) {
	if err := ctx.Err(); err != nil {
		return model.Host{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[ip]
	if !ok {
		return model.Host{}, ErrHostNotFound
	}
	return m.hosts[i], nil
}

func (m *memoryStore) CreateHost(ctx context.Context, host model.Host) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[host.IP]; exists {
		return ErrHostExists
	}
	m.hosts = slices.Insert(m.hosts, 0, host)
	m.reindex()
	return nil
}

func (m *memoryStore) MutateHost(ctx context.Context, ip string, fn MutateFunc) (model.Host, error) {
	if err := ctx.Err(); err != nil {
		return model.Host{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[ip]
	if !ok {
		return model.Host{}, ErrHostNotFound
	}

	// fn works on a copy so a failed mutation leaves no trace
	host := m.hosts[i]
	changes, err := fn(&host)
	if err != nil {
		return model.Host{}, err
	}
	host.IP = ip

	m.hosts[i] = host
	m.appendChanges(changes)
	return host, nil
}

func (m *memoryStore) ListInefficiencies(ctx context.Context) ([]model.InefficiencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.inefficiencies), nil
}

func (m *memoryStore) ListMetrics(ctx context.Context) ([]model.MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.metrics), nil
}

func (m *memoryStore) ListChannelSummaries(ctx context.Context) ([]model.ChannelSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.summaries), nil
}

func (m *memoryStore) ListChannelDetails(ctx context.Context) ([]model.ChannelDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.details), nil
}

func (m *memoryStore) ListChangeRecords(ctx context.Context) ([]model.ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.changes), nil
}

func (m *memoryStore) Load(ctx context.Context, ds *model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDataset(ds); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hosts = slices.Clone(ds.Hosts)
	m.reindex()
	m.inefficiencies = slices.Clone(ds.Inefficiencies)
	m.metrics = slices.Clone(ds.Metrics)
	m.summaries = slices.Clone(ds.ChannelSummaries)
	m.details = slices.Clone(ds.ChannelDetails)
	m.changes = nil
	m.nextSeq = 0
	m.appendChanges(ds.ChangeRecords)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

// appendChanges assigns sequence numbers; caller holds the write lock
func (m *memoryStore) appendChanges(changes []model.ChangeRecord) {
	for _, c := range changes {
		m.nextSeq++
		c.Seq = m.nextSeq
		m.changes = append(m.changes, c)
	}
}

// reindex rebuilds the ip index; caller holds the write lock
func (m *memoryStore) reindex() {
	m.index = make(map[string]int, len(m.hosts))
	for i, h := range m.hosts {
		m.index[h.IP] = i
	}
}
