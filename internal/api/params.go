package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/query"
	"github.com/kirychukyurii/hostdesk/internal/service"
)

// paramParser reads query string values, collecting every malformed one
type paramParser struct {
	values url.Values
	fields map[string]string
}

func newParamParser(values url.Values) *paramParser {
	return &paramParser{values: values, fields: make(map[string]string)}
}

func (p *paramParser) str(key string) string {
	return strings.TrimSpace(p.values.Get(key))
}

func (p *paramParser) integer(key string) int {
	s := p.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fields[key] = "must be an integer"
		return 0
	}
	return n
}

func (p *paramParser) boolean(key string) bool {
	s := p.str(key)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fields[key] = "must be true or false"
		return false
	}
	return b
}

func (p *paramParser) date(key string) model.Date {
	s := p.str(key)
	if s == "" {
		return ""
	}
	d, err := model.ParseDate(s)
	if err != nil {
		p.fields[key] = "must be a date (YYYY-MM-DD)"
		return ""
	}
	return d
}

// status parses an optional status code or name with parse
func status[T any](p *paramParser, key string, parse func(string) (T, error)) *T {
	s := p.str(key)
	if s == "" {
		return nil
	}
	v, err := parse(s)
	if err != nil {
		p.fields[key] = err.Error()
		return nil
	}
	return &v
}

func (p *paramParser) params() query.Params {
	return query.Params{
		Page:       p.integer("page"),
		PageSize:   p.integer("pageSize"),
		SearchText: p.str("searchText"),
		StartDate:  p.date("startTime"),
		EndDate:    p.date("endTime"),
		SortBy:     p.str("sortBy"),
		SortOrder:  p.str("sortOrder"),
	}
}

func (p *paramParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: p.fields}
}

func parseHostQuery(values url.Values) (service.HostQuery, error) {
	p := newParamParser(values)
	q := service.HostQuery{
		Params:           p.params(),
		IP:               p.str("ip"),
		Vendor:           p.str("vendor"),
		Region:           p.str("region"),
		OS:               p.str("os"),
		Owner:            p.str("owner"),
		Department:       p.str("department"),
		EnableStatus:     status(p, "enableStatus", model.ParseEnableStatus),
		ManagementStatus: status(p, "managementStatus", model.ParseManagementStatus),
		DeviceStatus:     status(p, "deviceStatus", model.ParseDeviceStatus),
		IncludeDeleted:   p.boolean("includeDeleted"),
	}
	return q, p.err()
}

func parsePoolQuery(values url.Values) (service.PoolQuery, error) {
	p := newParamParser(values)
	q := service.PoolQuery{
		Params: p.params(),
		Region: p.str("region"),
	}
	return q, p.err()
}

func parseInefficiencyQuery(values url.Values) (service.InefficiencyQuery, error) {
	p := newParamParser(values)
	q := service.InefficiencyQuery{
		Params:         p.params(),
		HostIP:         p.str("hostIp"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return q, p.err()
}

func parseMetricQuery(values url.Values) (service.MetricQuery, error) {
	p := newParamParser(values)
	q := service.MetricQuery{
		Params:         p.params(),
		HostIP:         p.str("hostIp"),
		IncludeDeleted: p.boolean("includeDeleted"),
	}
	return q, p.err()
}

func parseChannelSummaryQuery(values url.Values) (service.ChannelSummaryQuery, error) {
	p := newParamParser(values)
	q := service.ChannelSummaryQuery{
		Params:      p.params(),
		ChannelName: p.str("channelName"),
		TaskType:    strings.ToUpper(p.str("taskType")),
	}
	return q, p.err()
}

func parseChannelDetailQuery(values url.Values) (service.ChannelDetailQuery, error) {
	p := newParamParser(values)
	q := service.ChannelDetailQuery{
		Params:   p.params(),
		ParentID: p.str("parentId"),
		HostIP:   p.str("hostIp"),
	}
	return q, p.err()
}

func parseChangeQuery(values url.Values) (service.ChangeQuery, error) {
	p := newParamParser(values)
	q := service.ChangeQuery{
		Params: p.params(),
		HostIP: p.str("hostIp"),
		Kind:   status(p, "kind", parseChangeKind),
	}
	return q, p.err()
}

func parseChangeKind(s string) (model.ChangeKind, error) {
	switch strings.ToLower(s) {
	case "1", model.ChangeManagementStatus.String():
		return model.ChangeManagementStatus, nil
	case "2", model.ChangeDeviceStatus.String():
		return model.ChangeDeviceStatus, nil
	}
	return 0, fmt.Errorf("invalid change kind %q", s)
}
