package model

import (
	"fmt"
	"strconv"
	"strings"
)

// EnableStatus tells whether a host is live or soft-deleted
type EnableStatus int

// ManagementStatus is the administrative state of a host
type ManagementStatus int

// DeviceStatus is the health state reported for a host
type DeviceStatus int

const (
	EnableActive  EnableStatus = 1
	EnableDeleted EnableStatus = 2
)

const (
	ManagementNormal         ManagementStatus = 1
	ManagementLowUtilization ManagementStatus = 2
	ManagementPoolable       ManagementStatus = 3 // host belongs to the public pool
)

const (
	DeviceNormal         DeviceStatus = 1
	DeviceMetricsMissing DeviceStatus = 2
	DeviceLoadAbnormal   DeviceStatus = 3
)

// Host represents a cloud virtual machine in the inventory
type Host struct {
	Vendor           string           `json:"vendor"`
	Region           string           `json:"region"`
	IP               string           `json:"ip"`
	CPU              int              `json:"cpu"`       // cores
	Memory           int              `json:"memory"`    // GB
	Disk             int              `json:"disk"`      // GB
	Bandwidth        int              `json:"bandwidth"` // Mbps
	OS               string           `json:"os"`
	OnlineDate       Date             `json:"onlineDate"`
	Owner            string           `json:"owner"`
	Department       string           `json:"department"`
	SharedDepartment string           `json:"sharedDepartment"`
	Purpose          string           `json:"purpose"`
	EnableStatus     EnableStatus     `json:"enableStatus"`
	ManagementStatus ManagementStatus `json:"managementStatus"`
	DeviceStatus     DeviceStatus     `json:"deviceStatus"`
}

// IsActive returns true unless the host has been soft-deleted
func (h *Host) IsActive() bool {
	return h.EnableStatus != EnableDeleted
}

// IsPoolable returns true if the host can be applied for from the public pool
func (h *Host) IsPoolable() bool {
	return h.IsActive() && h.ManagementStatus == ManagementPoolable
}

// IsWindows reports whether the host runs a Windows operating system
func (h *Host) IsWindows() bool {
	return strings.Contains(strings.ToLower(h.OS), "windows")
}

// Ref returns the subset of host fields joined into record views
func (h *Host) Ref() *HostRef {
	return &HostRef{
		Vendor:           h.Vendor,
		Region:           h.Region,
		OS:               h.OS,
		Owner:            h.Owner,
		Department:       h.Department,
		EnableStatus:     h.EnableStatus,
		ManagementStatus: h.ManagementStatus,
		DeviceStatus:     h.DeviceStatus,
	}
}

// HostRef is the host side of a join on IP
type HostRef struct {
	Vendor           string           `json:"vendor"`
	Region           string           `json:"region"`
	OS               string           `json:"os"`
	Owner            string           `json:"owner"`
	Department       string           `json:"department"`
	EnableStatus     EnableStatus     `json:"enableStatus"`
	ManagementStatus ManagementStatus `json:"managementStatus"`
	DeviceStatus     DeviceStatus     `json:"deviceStatus"`
}

// NewHost is the payload for adding a host. The IP is minted by the service.
type NewHost struct {
	Vendor           string           `json:"vendor" validate:"required"`
	Region           string           `json:"region" validate:"required"`
	CPU              int              `json:"cpu" validate:"gt=0"`
	Memory           int              `json:"memory" validate:"gt=0"`
	Disk             int              `json:"disk" validate:"gt=0"`
	Bandwidth        int              `json:"bandwidth" validate:"gt=0"`
	OS               string           `json:"os" validate:"required"`
	OnlineDate       Date             `json:"onlineDate" validate:"required,calendar_date"`
	Owner            string           `json:"owner" validate:"required"`
	Department       string           `json:"department" validate:"required"`
	SharedDepartment string           `json:"sharedDepartment"`
	Purpose          string           `json:"purpose"`
	EnableStatus     EnableStatus     `json:"enableStatus" validate:"omitempty,oneof=1 2"`
	ManagementStatus ManagementStatus `json:"managementStatus" validate:"omitempty,oneof=1 2 3"`
	DeviceStatus     DeviceStatus     `json:"deviceStatus" validate:"omitempty,oneof=1 2 3"`
}

// Host builds the stored host for the given IP, defaulting unset statuses
func (n *NewHost) Host(ip string) Host {
	h := Host{
		Vendor:           n.Vendor,
		Region:           n.Region,
		IP:               ip,
		CPU:              n.CPU,
		Memory:           n.Memory,
		Disk:             n.Disk,
		Bandwidth:        n.Bandwidth,
		OS:               n.OS,
		OnlineDate:       n.OnlineDate,
		Owner:            n.Owner,
		Department:       n.Department,
		SharedDepartment: n.SharedDepartment,
		Purpose:          n.Purpose,
		EnableStatus:     n.EnableStatus,
		ManagementStatus: n.ManagementStatus,
		DeviceStatus:     n.DeviceStatus,
	}
	if h.EnableStatus == 0 {
		h.EnableStatus = EnableActive
	}
	if h.ManagementStatus == 0 {
		h.ManagementStatus = ManagementNormal
	}
	if h.DeviceStatus == 0 {
		h.DeviceStatus = DeviceNormal
	}
	if d, err := ParseDate(string(h.OnlineDate)); err == nil {
		h.OnlineDate = d
	}
	return h
}

// HostPatch is a partial host update. Nil fields are left untouched.
type HostPatch struct {
	Vendor           *string           `json:"vendor,omitempty" validate:"omitnil,min=1"`
	Region           *string           `json:"region,omitempty" validate:"omitnil,min=1"`
	CPU              *int              `json:"cpu,omitempty" validate:"omitnil,gt=0"`
	Memory           *int              `json:"memory,omitempty" validate:"omitnil,gt=0"`
	Disk             *int              `json:"disk,omitempty" validate:"omitnil,gt=0"`
	Bandwidth        *int              `json:"bandwidth,omitempty" validate:"omitnil,gt=0"`
	OS               *string           `json:"os,omitempty" validate:"omitnil,min=1"`
	OnlineDate       *Date             `json:"onlineDate,omitempty" validate:"omitnil,calendar_date"`
	Owner            *string           `json:"owner,omitempty" validate:"omitnil,min=1"`
	Department       *string           `json:"department,omitempty" validate:"omitnil,min=1"`
	SharedDepartment *string           `json:"sharedDepartment,omitempty"`
	Purpose          *string           `json:"purpose,omitempty"`
	EnableStatus     *EnableStatus     `json:"enableStatus,omitempty" validate:"omitnil,oneof=1 2"`
	ManagementStatus *ManagementStatus `json:"managementStatus,omitempty" validate:"omitnil,oneof=1 2 3"`
	DeviceStatus     *DeviceStatus     `json:"deviceStatus,omitempty" validate:"omitnil,oneof=1 2 3"`
}

// Apply copies every set field of the patch onto h
func (p *HostPatch) Apply(h *Host) {
	if p.Vendor != nil {
		h.Vendor = *p.Vendor
	}
	if p.Region != nil {
		h.Region = *p.Region
	}
	if p.CPU != nil {
		h.CPU = *p.CPU
	}
	if p.Memory != nil {
		h.Memory = *p.Memory
	}
	if p.Disk != nil {
		h.Disk = *p.Disk
	}
	if p.Bandwidth != nil {
		h.Bandwidth = *p.Bandwidth
	}
	if p.OS != nil {
		h.OS = *p.OS
	}
	if p.OnlineDate != nil {
		h.OnlineDate = *p.OnlineDate
		if d, err := ParseDate(string(*p.OnlineDate)); err == nil {
			h.OnlineDate = d
		}
	}
	if p.Owner != nil {
		h.Owner = *p.Owner
	}
	if p.Department != nil {
		h.Department = *p.Department
	}
	if p.SharedDepartment != nil {
		h.SharedDepartment = *p.SharedDepartment
	}
	if p.Purpose != nil {
		h.Purpose = *p.Purpose
	}
	if p.EnableStatus != nil {
		h.EnableStatus = *p.EnableStatus
	}
	if p.ManagementStatus != nil {
		h.ManagementStatus = *p.ManagementStatus
	}
	if p.DeviceStatus != nil {
		h.DeviceStatus = *p.DeviceStatus
	}
}

// PoolApplication is the payload for taking a host out of the public pool
type PoolApplication struct {
	Owner      string `json:"owner" validate:"required"`
	Department string `json:"department" validate:"required"`
	Purpose    string `json:"purpose" validate:"required"`
}

func (s EnableStatus) String() string {
	switch s {
	case EnableActive:
		return "active"
	case EnableDeleted:
		return "deleted"
	}
	return "unknown"
}

func (s ManagementStatus) String() string {
	switch s {
	case ManagementNormal:
		return "normal"
	case ManagementLowUtilization:
		return "low-utilization"
	case ManagementPoolable:
		return "poolable"
	}
	return "unknown"
}

func (s DeviceStatus) String() string {
	switch s {
	case DeviceNormal:
		return "normal"
	case DeviceMetricsMissing:
		return "metrics-missing"
	case DeviceLoadAbnormal:
		return "load-abnormal"
	}
	return "unknown"
}

// ParseEnableStatus accepts a numeric code or a status name
func ParseEnableStatus(s string) (EnableStatus, error) {
	code, err := parseCode(s, map[string]int{
		"active":  int(EnableActive),
		"deleted": int(EnableDeleted),
	}, 2)
	return EnableStatus(code), err
}

// ParseManagementStatus accepts a numeric code or a status name
func ParseManagementStatus(s string) (ManagementStatus, error) {
	code, err := parseCode(s, map[string]int{
		"normal":          int(ManagementNormal),
		"low-utilization": int(ManagementLowUtilization),
		"poolable":        int(ManagementPoolable),
	}, 3)
	return ManagementStatus(code), err
}

// ParseDeviceStatus accepts a numeric code or a status name
func ParseDeviceStatus(s string) (DeviceStatus, error) {
	code, err := parseCode(s, map[string]int{
		"normal":          int(DeviceNormal),
		"metrics-missing": int(DeviceMetricsMissing),
		"load-abnormal":   int(DeviceLoadAbnormal),
	}, 3)
	return DeviceStatus(code), err
}

func parseCode(s string, names map[string]int, max int) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, ok := names[s]; ok {
		return code, nil
	}
	code, err := strconv.Atoi(s)
	if err != nil || code < 1 || code > max {
		return 0, fmt.Errorf("invalid status %q", s)
	}
	return code, nil
}
