package service

import (
	"cmp"
	"context"
	"maps"
	"net/netip"
	"slices"
	"strings"

	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/query"
)

// HostQuery filters the host list. An explicit EnableStatus overrides the
// default exclusion of soft-deleted hosts.
type HostQuery struct {
	query.Params
	IP               string
	Vendor           string
	Region           string
	OS               string
	Owner            string
	Department       string
	EnableStatus     *model.EnableStatus
	ManagementStatus *model.ManagementStatus
	DeviceStatus     *model.DeviceStatus
	IncludeDeleted   bool
}

// PoolQuery filters the public pool: active hosts in poolable state
type PoolQuery struct {
	query.Params
	Region string
}

// InefficiencyQuery filters inefficiency samples
type InefficiencyQuery struct {
	query.Params
	HostIP         string
	IncludeDeleted bool
}

// MetricQuery filters per-host metric samples
type MetricQuery struct {
	query.Params
	HostIP         string
	IncludeDeleted bool
}

// ChannelSummaryQuery filters channel summaries. ChannelName matches as a substring.
type ChannelSummaryQuery struct {
	query.Params
	ChannelName string
	TaskType    string
}

// ChannelDetailQuery filters channel details
type ChannelDetailQuery struct {
	query.Params
	ParentID string
	HostIP   string
}

// ChangeQuery filters the change log
type ChangeQuery struct {
	query.Params
	HostIP string
	Kind   *model.ChangeKind
}

func compareIP(a, b string) int {
	x, errX := netip.ParseAddr(a)
	y, errY := netip.ParseAddr(b)
	if errX != nil || errY != nil {
		return cmp.Compare(a, b)
	}
	return x.Compare(y)
}

var hostSorters = query.Sorters[model.Host]{
	"ip":         func(a, b model.Host) int { return compareIP(a.IP, b.IP) },
	"onlineDate": query.By(func(h model.Host) model.Date { return h.OnlineDate }),
	"cpu":        query.By(func(h model.Host) int { return h.CPU }),
	"memory":     query.By(func(h model.Host) int { return h.Memory }),
	"disk":       query.By(func(h model.Host) int { return h.Disk }),
}

var inefficiencySorters = query.Sorters[model.InefficiencyView]{
	"sampleDate": query.By(func(v model.InefficiencyView) model.Date { return v.SampleDate }),
}

var metricSorters = query.Sorters[model.MetricView]{
	"sampleDate": query.By(func(v model.MetricView) model.Date { return v.SampleDate }),
}

var summarySorters = query.Sorters[model.ChannelSummary]{
	"sampleDate": query.By(func(s model.ChannelSummary) model.Date { return s.SampleDate }),
	"total":      query.By(func(s model.ChannelSummary) int { return s.Total }),
}

var detailSorters = query.Sorters[model.ChannelDetail]{
	"sampleDate": query.By(func(d model.ChannelDetail) model.Date { return d.SampleDate }),
	"total":      query.By(func(d model.ChannelDetail) int { return d.Total }),
}

var changeSorters = query.Sorters[model.ChangeView]{
	"sampleDate": query.By(func(v model.ChangeView) model.Date { return v.SampleDate }),
}

// run normalizes p and executes the query, reporting bad parameters as a
// ValidationError keyed by the offending parameter
func run[T any](s *inventoryService, items []T, p query.Params, sorters query.Sorters[T], preds ...query.Predicate[T]) (model.Page[T], error) {
	empty := model.Page[T]{List: []T{}}

	p, err := p.Normalize(s.queryCfg.DefaultPageSize, s.queryCfg.MaxPageSize)
	if err != nil {
		field, _, _ := strings.Cut(err.Error(), " ")
		return empty, NewValidationError(field, err.Error())
	}
	if p.SortBy != "" {
		if _, ok := sorters[p.SortBy]; !ok {
			keys := slices.Sorted(maps.Keys(sorters))
			return empty, NewValidationError("sortBy", "must be one of "+strings.Join(keys, ", "))
		}
	}

	page, err := query.Run(items, p, sorters, preds...)
	if err != nil {
		return empty, NewValidationError("sortBy", err.Error())
	}
	return page, nil
}

// activeOnly drops soft-deleted hosts unless include is set
func activeOnly(include bool) query.Predicate[model.Host] {
	if include {
		return nil
	}
	return func(h model.Host) bool { return h.IsActive() }
}

// hostIndex maps IP to host for joins, skipping soft-deleted hosts unless
// includeDeleted is set
func hostIndex(hosts []model.Host, includeDeleted bool) map[string]*model.Host {
	idx := make(map[string]*model.Host, len(hosts))
	for i := range hosts {
		if includeDeleted || hosts[i].IsActive() {
			idx[hosts[i].IP] = &hosts[i]
		}
	}
	return idx
}

// joinRef returns the joined host side, nil for an unknown IP
func joinRef(idx map[string]*model.Host, ip string) *model.HostRef {
	if h, ok := idx[ip]; ok {
		return h.Ref()
	}
	return nil
}

func (s *inventoryService) hostPredicates(q HostQuery) []query.Predicate[model.Host] {
	return []query.Predicate[model.Host]{
		activeOnly(q.IncludeDeleted || q.EnableStatus != nil),
		query.Text(q.SearchText, func(h model.Host) []string {
			return []string{h.IP, h.Owner, h.Department, h.OS}
		}),
		query.DateRange(q.StartDate, q.EndDate, func(h model.Host) model.Date { return h.OnlineDate }),
		query.EqualString(q.IP, func(h model.Host) string { return h.IP }),
		query.EqualString(q.Vendor, func(h model.Host) string { return h.Vendor }),
		query.EqualString(q.Region, func(h model.Host) string { return h.Region }),
		query.EqualString(q.OS, func(h model.Host) string { return h.OS }),
		query.EqualString(q.Owner, func(h model.Host) string { return h.Owner }),
		query.EqualString(q.Department, func(h model.Host) string { return h.Department }),
		query.Equal(q.EnableStatus, func(h model.Host) model.EnableStatus { return h.EnableStatus }),
		query.Equal(q.ManagementStatus, func(h model.Host) model.ManagementStatus { return h.ManagementStatus }),
		query.Equal(q.DeviceStatus, func(h model.Host) model.DeviceStatus { return h.DeviceStatus }),
	}
}

// QueryHosts returns one page of the host list
func (s *inventoryService) QueryHosts(ctx context.Context, q HostQuery) (model.Page[model.Host], error) {
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return model.Page[model.Host]{List: []model.Host{}}, classify(err)
	}
	return run(s, hosts, q.Params, hostSorters, s.hostPredicates(q)...)
}

// ExportHosts returns every host matching q, ignoring pagination
func (s *inventoryService) ExportHosts(ctx context.Context, q HostQuery) ([]model.Host, error) {
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return nil, classify(err)
	}

	p := q.Params
	p.Page, p.PageSize = 0, 0
	p, err = p.Normalize(s.queryCfg.DefaultPageSize, s.queryCfg.MaxPageSize)
	if err != nil {
		field, _, _ := strings.Cut(err.Error(), " ")
		return nil, NewValidationError(field, err.Error())
	}

	matched := query.Filter(hosts, s.hostPredicates(q)...)
	if err := hostSorters.Sort(matched, p.SortBy, p.SortOrder); err != nil {
		return nil, NewValidationError("sortBy", err.Error())
	}
	return matched, nil
}

// GetHost returns a single host by IP, soft-deleted included
func (s *inventoryService) GetHost(ctx context.Context, ip string) (model.Host, error) {
	h, err := s.store.GetHost(ctx, ip)
	if err != nil {
		return model.Host{}, classify(err)
	}
	return h, nil
}

// QueryPool returns one page of the public pool
func (s *inventoryService) QueryPool(ctx context.Context, q PoolQuery) (model.Page[model.Host], error) {
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return model.Page[model.Host]{List: []model.Host{}}, classify(err)
	}
	return run(s, hosts, q.Params, hostSorters,
		func(h model.Host) bool { return h.IsPoolable() },
		query.Text(q.SearchText, func(h model.Host) []string {
			return []string{h.IP, h.OS, h.Region}
		}),
		query.DateRange(q.StartDate, q.EndDate, func(h model.Host) model.Date { return h.OnlineDate }),
		query.EqualString(q.Region, func(h model.Host) string { return h.Region }),
	)
}

// QueryInefficiencies returns inefficiency samples joined with their hosts
func (s *inventoryService) QueryInefficiencies(ctx context.Context, q InefficiencyQuery) (model.Page[model.InefficiencyView], error) {
	empty := model.Page[model.InefficiencyView]{List: []model.InefficiencyView{}}

	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return empty, classify(err)
	}
	records, err := s.store.ListInefficiencies(ctx)
	if err != nil {
		return empty, classify(err)
	}

	deleted := deletedIPs(hosts)
	idx := hostIndex(hosts, q.IncludeDeleted)
	views := make([]model.InefficiencyView, 0, len(records))
	for _, r := range records {
		if _, gone := deleted[r.IP]; gone && !q.IncludeDeleted {
			continue
		}
		views = append(views, model.InefficiencyView{InefficiencyRecord: r, Host: joinRef(idx, r.IP)})
	}

	return run(s, views, q.Params, inefficiencySorters,
		query.Text(q.SearchText, func(v model.InefficiencyView) []string {
			fields := []string{v.IP}
			if v.Host != nil {
				fields = append(fields, v.Host.Owner)
			}
			return fields
		}),
		query.DateRange(q.StartDate, q.EndDate, func(v model.InefficiencyView) model.Date { return v.SampleDate }),
		query.EqualString(q.HostIP, func(v model.InefficiencyView) string { return v.IP }),
	)
}

// QueryMetrics returns per-host metric samples joined with their hosts
func (s *inventoryService) QueryMetrics(ctx context.Context, q MetricQuery) (model.Page[model.MetricView], error) {
	empty := model.Page[model.MetricView]{List: []model.MetricView{}}

	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return empty, classify(err)
	}
	records, err := s.store.ListMetrics(ctx)
	if err != nil {
		return empty, classify(err)
	}

	deleted := deletedIPs(hosts)
	idx := hostIndex(hosts, q.IncludeDeleted)
	views := make([]model.MetricView, 0, len(records))
	for _, r := range records {
		if _, gone := deleted[r.IP]; gone && !q.IncludeDeleted {
			continue
		}
		views = append(views, model.MetricView{MetricRecord: r, Host: joinRef(idx, r.IP)})
	}

	return run(s, views, q.Params, metricSorters,
		query.Text(q.SearchText, func(v model.MetricView) []string {
			return append([]string{v.IP}, v.Processes...)
		}),
		query.DateRange(q.StartDate, q.EndDate, func(v model.MetricView) model.Date { return v.SampleDate }),
		query.EqualString(q.HostIP, func(v model.MetricView) string { return v.IP }),
	)
}

// deletedIPs returns the IPs of soft-deleted hosts
func deletedIPs(hosts []model.Host) map[string]struct{} {
	out := make(map[string]struct{})
	for _, h := range hosts {
		if !h.IsActive() {
			out[h.IP] = struct{}{}
		}
	}
	return out
}

// QueryChannelSummaries returns one page of channel summaries
func (s *inventoryService) QueryChannelSummaries(ctx context.Context, q ChannelSummaryQuery) (model.Page[model.ChannelSummary], error) {
	summaries, err := s.store.ListChannelSummaries(ctx)
	if err != nil {
		return model.Page[model.ChannelSummary]{List: []model.ChannelSummary{}}, classify(err)
	}
	return run(s, summaries, q.Params, summarySorters,
		query.Text(q.SearchText, func(c model.ChannelSummary) []string {
			return []string{c.ID, c.Channel}
		}),
		query.DateRange(q.StartDate, q.EndDate, func(c model.ChannelSummary) model.Date { return c.SampleDate }),
		query.Contains(q.ChannelName, func(c model.ChannelSummary) string { return c.Channel }),
		query.EqualString(q.TaskType, func(c model.ChannelSummary) string { return c.TaskType }),
	)
}

// QueryChannelDetails returns one page of channel details
func (s *inventoryService) QueryChannelDetails(ctx context.Context, q ChannelDetailQuery) (model.Page[model.ChannelDetail], error) {
	details, err := s.store.ListChannelDetails(ctx)
	if err != nil {
		return model.Page[model.ChannelDetail]{List: []model.ChannelDetail{}}, classify(err)
	}
	return run(s, details, q.Params, detailSorters,
		query.Text(q.SearchText, func(d model.ChannelDetail) []string {
			return []string{d.Business, d.IP}
		}),
		query.DateRange(q.StartDate, q.EndDate, func(d model.ChannelDetail) model.Date { return d.SampleDate }),
		query.EqualString(q.ParentID, func(d model.ChannelDetail) string { return d.ParentID }),
		query.EqualString(q.HostIP, func(d model.ChannelDetail) string { return d.IP }),
	)
}

// GetChannelDetails returns the details of one summary, ErrNotFound if the
// summary does not exist
func (s *inventoryService) GetChannelDetails(ctx context.Context, summaryID string, q ChannelDetailQuery) (model.Page[model.ChannelDetail], error) {
	summaries, err := s.store.ListChannelSummaries(ctx)
	if err != nil {
		return model.Page[model.ChannelDetail]{List: []model.ChannelDetail{}}, classify(err)
	}
	if !slices.ContainsFunc(summaries, func(c model.ChannelSummary) bool { return c.ID == summaryID }) {
		return model.Page[model.ChannelDetail]{List: []model.ChannelDetail{}}, fmtNotFound("channel summary", summaryID)
	}

	q.ParentID = summaryID
	return s.QueryChannelDetails(ctx, q)
}

// QueryChanges returns the change log, newest first, joined with hosts.
// The log is an audit trail and keeps records of soft-deleted hosts.
func (s *inventoryService) QueryChanges(ctx context.Context, q ChangeQuery) (model.Page[model.ChangeView], error) {
	empty := model.Page[model.ChangeView]{List: []model.ChangeView{}}

	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return empty, classify(err)
	}
	records, err := s.store.ListChangeRecords(ctx)
	if err != nil {
		return empty, classify(err)
	}

	idx := hostIndex(hosts, true)
	views := make([]model.ChangeView, len(records))
	for i, r := range records {
		views[i] = model.ChangeView{ChangeRecord: r, Host: joinRef(idx, r.IP)}
	}
	slices.SortStableFunc(views, func(a, b model.ChangeView) int {
		if c := cmp.Compare(b.SampleDate, a.SampleDate); c != 0 {
			return c
		}
		return cmp.Compare(b.Seq, a.Seq)
	})

	return run(s, views, q.Params, changeSorters,
		query.Text(q.SearchText, func(v model.ChangeView) []string {
			return []string{v.Operator, v.Remark}
		}),
		query.DateRange(q.StartDate, q.EndDate, func(v model.ChangeView) model.Date { return v.SampleDate }),
		query.EqualString(q.HostIP, func(v model.ChangeView) string { return v.IP }),
		query.Equal(q.Kind, func(v model.ChangeView) model.ChangeKind { return v.Kind }),
	)
}
