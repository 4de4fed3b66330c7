// Package seed generates a deterministic demo dataset: hosts, utilization
// samples, channel task statistics and a status change history.
package seed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

var (
	vendors     = []string{"Alibaba Cloud", "Tencent Cloud", "Huawei Cloud", "AWS", "Azure"}
	regions     = []string{"Nanjing", "Beijing", "Shanghai", "Guangzhou", "Shenzhen"}
	systems     = []string{"Windows Server 2008", "Windows Server 2012", "Windows Server 2016", "Windows Server 2019", "Ubuntu 18.04", "Ubuntu 20.04", "CentOS 7", "CentOS 8"}
	departments = []string{"DSC - Nanjing Tech - PEVC", "WDS - Nanjing Tech - Equities", "R&D", "QA", "Operations"}
	channels    = []string{"FHBSD", "XYK", "ZCK", "HK", "TX"}
	taskTypes   = []string{model.TaskTypeList, model.TaskTypeData, model.TaskTypeDetail}
	operators   = []string{"system", "admin", "user1", "user2", "user3"}
)

// changeNamespace scopes the name-based UUIDs of generated change records
var changeNamespace = uuid.MustParse("6f1c2a4e-3b1d-4c55-9a0e-8d2f7c1b5e90")

// Options controls the size and randomness of the generated dataset
type Options struct {
	Hosts int
	// Inefficient is the number of leading hosts with an inefficiency sample.
	// Zero means 30% of Hosts.
	Inefficient int
	Channels    int // zero means Hosts/2
	Seed        int64
	// Now is the upper bound for generated dates. Zero means time.Now().
	Now time.Time
}

// Generate builds a dataset satisfying every store invariant: unique host
// IPs, task counts adding up to their total and details whose parent exists.
// Equal options produce equal datasets.
func Generate(opts Options) *model.Dataset {
	if opts.Hosts < 0 {
		opts.Hosts = 0
	}
	if opts.Inefficient <= 0 {
		opts.Inefficient = opts.Hosts * 3 / 10
	}
	if opts.Inefficient > opts.Hosts {
		opts.Inefficient = opts.Hosts
	}
	if opts.Channels <= 0 {
		opts.Channels = opts.Hosts / 2
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	g := &generator{
		rnd: rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)^0x9e3779b97f4a7c15)),
		now: opts.Now.UTC(),
	}

	ds := &model.Dataset{}
	ds.Hosts = g.hosts(opts.Hosts)

	ips := make([]string, len(ds.Hosts))
	for i, h := range ds.Hosts {
		ips[i] = h.IP
	}

	ds.Inefficiencies = g.inefficiencies(ips[:opts.Inefficient])
	ds.Metrics = g.metrics(ips)
	ds.ChannelSummaries = g.summaries(opts.Channels)
	if len(ips) > 0 {
		ds.ChannelDetails = g.details(ds.ChannelSummaries, ips)
	}
	ds.ChangeRecords = g.changes(ips)
	return ds
}

type generator struct {
	rnd *rand.Rand
	now time.Time
}

func (g *generator) pick(values []string) string {
	return values[g.rnd.IntN(len(values))]
}

// date returns a random calendar date between start and g.now
func (g *generator) date(start time.Time) model.Date {
	span := g.now.Sub(start)
	if span <= 0 {
		return model.DateOf(g.now)
	}
	return model.DateOf(start.Add(time.Duration(g.rnd.Int64N(int64(span)))))
}

// percent returns an integral percentage in [0, 100)
func (g *generator) percent() float64 {
	return float64(g.rnd.IntN(100))
}

// rate returns a random transfer rate in [0, limit) rounded to two decimals
func (g *generator) rate(limit float64) float64 {
	return float64(int(g.rnd.Float64()*limit*100)) / 100
}

func (g *generator) ip(seen map[string]struct{}) string {
	for {
		ip := fmt.Sprintf("%d.%d.%d.%d", 1+g.rnd.IntN(254), g.rnd.IntN(255), g.rnd.IntN(255), 1+g.rnd.IntN(254))
		if _, dup := seen[ip]; !dup {
			seen[ip] = struct{}{}
			return ip
		}
	}
}

var (
	hostsSince   = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	samplesSince = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func (g *generator) hosts(n int) []model.Host {
	seen := make(map[string]struct{}, n)
	hosts := make([]model.Host, n)

	for i := range hosts {
		h := model.Host{
			Vendor:           g.pick(vendors),
			Region:           g.pick(regions),
			IP:               g.ip(seen),
			CPU:              g.rnd.IntN(8) + 2,
			Memory:           g.rnd.IntN(16) + 4,
			Disk:             g.rnd.IntN(500) + 100,
			Bandwidth:        g.rnd.IntN(100) + 5,
			OS:               g.pick(systems),
			OnlineDate:       g.date(hostsSince),
			Owner:            fmt.Sprintf("owner%d", i+1),
			Department:       g.pick(departments),
			EnableStatus:     model.EnableActive,
			ManagementStatus: model.ManagementStatus(g.rnd.IntN(3) + 1),
			DeviceStatus:     model.DeviceStatus(g.rnd.IntN(3) + 1),
		}
		if g.rnd.Float64() > 0.5 {
			h.SharedDepartment = g.pick(departments)
		}
		if g.rnd.Float64() <= 0.1 {
			h.EnableStatus = model.EnableDeleted
		}
		hosts[i] = h
	}
	return hosts
}

func (g *generator) inefficiencies(ips []string) []model.InefficiencyRecord {
	out := make([]model.InefficiencyRecord, len(ips))
	for i, ip := range ips {
		out[i] = model.InefficiencyRecord{
			IP:            ip,
			SampleDate:    g.date(samplesSince),
			CPUWeekly:     g.percent(),
			MemoryWeekly:  g.percent(),
			DiskWeekly:    g.percent(),
			NetInWeekly:   g.rate(10),
			NetOutWeekly:  g.rate(50),
			CPUMonthly:    g.percent(),
			MemoryMonthly: g.percent(),
			DiskMonthly:   g.percent(),
			NetInMonthly:  g.rate(10),
			NetOutMonthly: g.rate(50),
		}
	}
	return out
}

func (g *generator) metrics(ips []string) []model.MetricRecord {
	out := make([]model.MetricRecord, len(ips))
	for i, ip := range ips {
		out[i] = model.MetricRecord{
			IP:           ip,
			SampleDate:   g.date(samplesSince),
			CPU:          g.percent(),
			Memory:       g.percent(),
			Disk:         g.percent(),
			NetIn:        g.rate(10),
			NetOut:       g.rate(50),
			ProcessCount: g.rnd.IntN(500) + 100,
			TaskCount:    g.rnd.IntN(5000) + 1000,
			Processes:    []string{"wcb_a", "wcb_b", fmt.Sprintf("process_%d", g.rnd.IntN(100))},
		}
	}
	return out
}

// taskCounts splits a random total into outcomes that add up to it
func (g *generator) taskCounts(base, spread int) model.TaskCounts {
	total := g.rnd.IntN(spread) + base
	success := int(float64(total) * (g.rnd.Float64()*0.5 + 0.5))
	failure := int(float64(total-success) * g.rnd.Float64())
	empty := int(float64(total-success-failure) * g.rnd.Float64())
	return model.TaskCounts{
		Total:        total,
		Success:      success,
		Failure:      failure,
		Empty:        empty,
		Deduplicated: total - success - failure - empty,
	}
}

func (g *generator) summaries(n int) []model.ChannelSummary {
	out := make([]model.ChannelSummary, n)
	for i := range out {
		out[i] = model.ChannelSummary{
			ID:         fmt.Sprintf("channel_%d", i+1),
			Channel:    g.pick(channels),
			TaskType:   g.pick(taskTypes),
			SampleDate: g.date(samplesSince),
			TaskCounts: g.taskCounts(500, 1000),
		}
	}
	return out
}

func (g *generator) details(summaries []model.ChannelSummary, ips []string) []model.ChannelDetail {
	var out []model.ChannelDetail
	for _, s := range summaries {
		for range g.rnd.IntN(5) + 1 {
			out = append(out, model.ChannelDetail{
				ParentID:   s.ID,
				Business:   g.pick(channels),
				IP:         g.pick(ips),
				SampleDate: s.SampleDate,
				TaskCounts: g.taskCounts(100, 500),
			})
		}
	}
	return out
}

func (g *generator) changes(ips []string) []model.ChangeRecord {
	var out []model.ChangeRecord
	for _, ip := range ips {
		for range g.rnd.IntN(10) + 1 {
			before := g.rnd.IntN(3) + 1
			after := g.rnd.IntN(3) + 1

			var c model.ChangeRecord
			if g.rnd.IntN(2) == 0 {
				c = model.ManagementChange(ip, model.ManagementStatus(before), model.ManagementStatus(after))
				c.Remark = "management status change"
			} else {
				c = model.DeviceChange(ip, model.DeviceStatus(before), model.DeviceStatus(after))
				c.Remark = "device status change"
			}
			c.SampleDate = g.date(samplesSince)
			c.Operator = g.pick(operators)
			c.ID = uuid.NewSHA1(changeNamespace, []byte(fmt.Sprintf("%s/%d", ip, len(out)))).String()
			out = append(out, c)
		}
	}
	return out
}

