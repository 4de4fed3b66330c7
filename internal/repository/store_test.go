package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/hostdesk/internal/config"
	"github.com/kirychukyurii/hostdesk/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHost(ip string) model.Host {
	return model.Host{
		Vendor:           "AWS",
		Region:           "us-east-1",
		IP:               ip,
		CPU:              4,
		Memory:           16,
		Disk:             100,
		Bandwidth:        100,
		OS:               "Ubuntu 22.04",
		OnlineDate:       "2024-01-15",
		Owner:            "alice",
		Department:       "ops",
		EnableStatus:     model.EnableActive,
		ManagementStatus: model.ManagementNormal,
		DeviceStatus:     model.DeviceNormal,
	}
}

func testDataset() *model.Dataset {
	counts := model.TaskCounts{Total: 10, Success: 6, Failure: 2, Empty: 1, Deduplicated: 1}
	return &model.Dataset{
		Hosts: []model.Host{testHost("10.0.0.1"), testHost("10.0.0.2"), testHost("10.0.0.3")},
		Inefficiencies: []model.InefficiencyRecord{
			{IP: "10.0.0.1", SampleDate: "2024-02-01", CPUWeekly: 3.5},
		},
		Metrics: []model.MetricRecord{
			{IP: "10.0.0.1", SampleDate: "2024-02-01", CPU: 12, Processes: []string{"nginx", "java -cp a.jar,b.jar"}},
			{IP: "10.0.0.2", SampleDate: "2024-02-01", CPU: 90},
		},
		ChannelSummaries: []model.ChannelSummary{
			{ID: "CH-1", Channel: "web", TaskType: model.TaskTypeList, SampleDate: "2024-02-01", TaskCounts: counts},
		},
		ChannelDetails: []model.ChannelDetail{
			{ParentID: "CH-1", Business: "orders", IP: "10.0.0.1", SampleDate: "2024-02-01", TaskCounts: counts},
		},
		ChangeRecords: []model.ChangeRecord{
			{ID: "c1", SampleDate: "2024-01-20", IP: "10.0.0.1", Kind: model.ChangeDeviceStatus, Operator: "seed", Before: "1", After: "2"},
		},
	}
}

// storeFactories builds every backend that runs without external services
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hosts.db"), discardLogger())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("load and list", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))

				hosts, err := s.ListHosts(ctx)
				require.NoError(t, err)
				require.Len(t, hosts, 3)
				assert.Equal(t, "10.0.0.1", hosts[0].IP)
				assert.Equal(t, testHost("10.0.0.1"), hosts[0])

				metrics, err := s.ListMetrics(ctx)
				require.NoError(t, err)
				require.Len(t, metrics, 2)
				assert.Equal(t, []string{"nginx", "java -cp a.jar,b.jar"}, metrics[0].Processes)
				assert.Empty(t, metrics[1].Processes)

				ineff, err := s.ListInefficiencies(ctx)
				require.NoError(t, err)
				require.Len(t, ineff, 1)
				assert.InDelta(t, 3.5, ineff[0].CPUWeekly, 1e-9)

				summaries, err := s.ListChannelSummaries(ctx)
				require.NoError(t, err)
				require.Len(t, summaries, 1)
				assert.NoError(t, summaries[0].TaskCounts.Validate())

				details, err := s.ListChannelDetails(ctx)
				require.NoError(t, err)
				require.Len(t, details, 1)
				assert.Equal(t, "CH-1", details[0].ParentID)

				changes, err := s.ListChangeRecords(ctx)
				require.NoError(t, err)
				require.Len(t, changes, 1)
				assert.Positive(t, changes[0].Seq)
			})

			t.Run("get host", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))

				h, err := s.GetHost(ctx, "10.0.0.2")
				require.NoError(t, err)
				assert.Equal(t, "10.0.0.2", h.IP)

				_, err = s.GetHost(ctx, "9.9.9.9")
				assert.ErrorIs(t, err, ErrHostNotFound)
			})

			t.Run("created hosts come first", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))

				require.NoError(t, s.CreateHost(ctx, testHost("10.1.1.1")))
				require.NoError(t, s.CreateHost(ctx, testHost("10.1.1.2")))
				assert.ErrorIs(t, s.CreateHost(ctx, testHost("10.0.0.1")), ErrHostExists)

				hosts, err := s.ListHosts(ctx)
				require.NoError(t, err)
				ips := make([]string, len(hosts))
				for i, h := range hosts {
					ips[i] = h.IP
				}
				assert.Equal(t, []string{"10.1.1.2", "10.1.1.1", "10.0.0.1", "10.0.0.2", "10.0.0.3"}, ips)
			})

			t.Run("mutate writes host and changes", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))

				got, err := s.MutateHost(ctx, "10.0.0.3", func(h *model.Host) ([]model.ChangeRecord, error) {
					before := *h
					h.ManagementStatus = model.ManagementPoolable
					changes := model.StatusChanges(&before, h)
					h.IP = "ignored"
					return changes, nil
				})
				require.NoError(t, err)
				assert.Equal(t, "10.0.0.3", got.IP, "ip is immutable")
				assert.Equal(t, model.ManagementPoolable, got.ManagementStatus)

				stored, err := s.GetHost(ctx, "10.0.0.3")
				require.NoError(t, err)
				assert.Equal(t, got, stored)

				changes, err := s.ListChangeRecords(ctx)
				require.NoError(t, err)
				require.Len(t, changes, 2)
				assert.Equal(t, model.ChangeManagementStatus, changes[1].Kind)
				assert.Greater(t, changes[1].Seq, changes[0].Seq)
			})

			t.Run("failed mutation leaves no trace", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))
				boom := errors.New("precondition failed")

				_, err := s.MutateHost(ctx, "10.0.0.1", func(h *model.Host) ([]model.ChangeRecord, error) {
					h.Owner = "mallory"
					return nil, boom
				})
				assert.ErrorIs(t, err, boom)

				h, err := s.GetHost(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.Equal(t, "alice", h.Owner)

				changes, err := s.ListChangeRecords(ctx)
				require.NoError(t, err)
				assert.Len(t, changes, 1)
			})

			t.Run("mutate unknown host", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))
				_, err := s.MutateHost(ctx, "9.9.9.9", func(h *model.Host) ([]model.ChangeRecord, error) {
					return nil, nil
				})
				assert.ErrorIs(t, err, ErrHostNotFound)
			})

			t.Run("concurrent mutations serialize", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))

				const writers = 20
				var wg sync.WaitGroup
				for i := 0; i < writers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.MutateHost(ctx, "10.0.0.1", func(h *model.Host) ([]model.ChangeRecord, error) {
							h.CPU++
							return nil, nil
						})
						assert.NoError(t, err)
					}()
				}
				wg.Wait()

				h, err := s.GetHost(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.Equal(t, 4+writers, h.CPU)
			})

			t.Run("load rejects orphan detail", func(t *testing.T) {
				s := newStore(t)
				ds := testDataset()
				ds.ChannelDetails[0].ParentID = "CH-404"
				assert.ErrorIs(t, s.Load(ctx, ds), ErrOrphanDetail)
			})

			t.Run("load restarts change sequence", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))
				first, err := s.ListChangeRecords(ctx)
				require.NoError(t, err)
				require.Len(t, first, 1)

				_, err = s.MutateHost(ctx, "10.0.0.2", func(h *model.Host) ([]model.ChangeRecord, error) {
					before := *h
					h.DeviceStatus = model.DeviceLoadAbnormal
					return model.StatusChanges(&before, h), nil
				})
				require.NoError(t, err)

				require.NoError(t, s.Load(ctx, testDataset()))
				again, err := s.ListChangeRecords(ctx)
				require.NoError(t, err)
				require.Len(t, again, 1)
				assert.Equal(t, first[0].Seq, again[0].Seq)
			})

			t.Run("load replaces contents", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Load(ctx, testDataset()))
				require.NoError(t, s.CreateHost(ctx, testHost("10.9.9.9")))

				ds := testDataset()
				ds.Hosts = ds.Hosts[:1]
				require.NoError(t, s.Load(ctx, ds))

				hosts, err := s.ListHosts(ctx)
				require.NoError(t, err)
				assert.Len(t, hosts, 1)
			})
		})
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListHosts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateDataset(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ds *model.Dataset)
		wantErr error
	}{
		{name: "valid", mutate: func(ds *model.Dataset) {}},
		{name: "duplicate ip", mutate: func(ds *model.Dataset) {
			ds.Hosts = append(ds.Hosts, testHost("10.0.0.1"))
		}, wantErr: ErrHostExists},
		{name: "orphan detail", mutate: func(ds *model.Dataset) {
			ds.ChannelDetails[0].ParentID = "missing"
		}, wantErr: ErrOrphanDetail},
		{name: "task counts do not add up", mutate: func(ds *model.Dataset) {
			ds.ChannelSummaries[0].Total = 99
		}},
		{name: "duplicate summary", mutate: func(ds *model.Dataset) {
			ds.ChannelSummaries = append(ds.ChannelSummaries, ds.ChannelSummaries[0])
		}},
		{name: "host without ip", mutate: func(ds *model.Dataset) {
			ds.Hosts[0].IP = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := testDataset()
			tt.mutate(ds)
			err := validateDataset(ds)

			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func BenchmarkMemoryStoreListHosts(b *testing.B) {
	s := NewMemoryStore()
	ds := &model.Dataset{}
	for i := 0; i < 1000; i++ {
		ds.Hosts = append(ds.Hosts, testHost(fmt.Sprintf("10.0.%d.%d", i/256, i%256)))
	}
	require.NoError(b, s.Load(context.Background(), ds))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.ListHosts(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(config.StorageConfig{Driver: config.DriverMemory}, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	store, err = NewStore(config.StorageConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "hostdesk.db")},
	}, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = NewStore(config.StorageConfig{Driver: "mongo"}, discardLogger())
	assert.ErrorContains(t, err, "unknown storage driver")
}
