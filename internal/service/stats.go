package service

import (
	"context"
	"math"

	"github.com/kirychukyurii/hostdesk/internal/cache"
	"github.com/kirychukyurii/hostdesk/internal/model"
)

// usageThreshold is the percentage at or above which a resource counts as abnormal
const usageThreshold = 80

// DashboardStats returns fleet statistics over active hosts, cached until
// the next mutation or TTL expiry
func (s *inventoryService) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	return s.stats.GetOrLoad(cache.KeyDashboardStats, func() (model.DashboardStats, error) {
		hosts, err := s.store.ListHosts(ctx)
		if err != nil {
			return model.DashboardStats{}, classify(err)
		}
		metrics, err := s.store.ListMetrics(ctx)
		if err != nil {
			return model.DashboardStats{}, classify(err)
		}
		return computeStats(hosts, metrics), nil
	})
}

// computeStats aggregates the latest metric sample of every active host
func computeStats(hosts []model.Host, metrics []model.MetricRecord) model.DashboardStats {
	var st model.DashboardStats

	active := make(map[string]struct{}, len(hosts))
	for i := range hosts {
		h := &hosts[i]
		if !h.IsActive() {
			continue
		}
		active[h.IP] = struct{}{}
		st.TotalHosts++
		if h.ManagementStatus == model.ManagementPoolable {
			st.PublicPoolCount++
		}
		if h.IsWindows() {
			st.WindowsCount++
		}
		if h.DeviceStatus == model.DeviceNormal {
			st.OnlineCount++
		}
	}
	st.LinuxCount = st.TotalHosts - st.WindowsCount
	st.AbnormalCount.Offline = st.TotalHosts - st.OnlineCount

	// Later samples in load order win ties on the same date
	latest := make(map[string]model.MetricRecord, len(active))
	for _, m := range metrics {
		if _, ok := active[m.IP]; !ok {
			continue
		}
		if prev, seen := latest[m.IP]; !seen || m.SampleDate >= prev.SampleDate {
			latest[m.IP] = m
		}
	}
	if len(latest) == 0 {
		return st
	}

	var cpu, mem, disk float64
	for _, m := range latest {
		cpu += m.CPU
		mem += m.Memory
		disk += m.Disk
		if m.CPU >= usageThreshold {
			st.AbnormalCount.HighCPU++
		}
		if m.Memory >= usageThreshold {
			st.AbnormalCount.HighMemory++
		}
		if m.Disk >= usageThreshold {
			st.AbnormalCount.HighDisk++
		}
	}
	n := float64(len(latest))
	st.CPUUsage = round2(cpu / n)
	st.MemoryUsage = round2(mem / n)
	st.DiskUsage = round2(disk / n)
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
