package model

import "strconv"

// ChangeKind identifies which host status a ChangeRecord describes
type ChangeKind int

const (
	ChangeManagementStatus ChangeKind = 1
	ChangeDeviceStatus     ChangeKind = 2
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeManagementStatus:
		return "management-status"
	case ChangeDeviceStatus:
		return "device-status"
	}
	return "unknown"
}

// ChangeRecord is an append-only audit entry of a host status change
type ChangeRecord struct {
	ID         string     `json:"id"`
	Seq        int64      `json:"seq"` // assigned by the store
	SampleDate Date       `json:"sampleDate"`
	IP         string     `json:"ip"`
	Kind       ChangeKind `json:"kind"`
	Operator   string     `json:"operator"`
	Before     string     `json:"before"`
	After      string     `json:"after"`
	Remark     string     `json:"remark"`
}

// ChangeView is a change record joined with its host
type ChangeView struct {
	ChangeRecord
	Host *HostRef `json:"host"`
}

// ManagementChange builds the record for a management status transition
func ManagementChange(ip string, before, after ManagementStatus) ChangeRecord {
	return ChangeRecord{
		IP:     ip,
		Kind:   ChangeManagementStatus,
		Before: strconv.Itoa(int(before)),
		After:  strconv.Itoa(int(after)),
	}
}

// DeviceChange builds the record for a device status transition
func DeviceChange(ip string, before, after DeviceStatus) ChangeRecord {
	return ChangeRecord{
		IP:     ip,
		Kind:   ChangeDeviceStatus,
		Before: strconv.Itoa(int(before)),
		After:  strconv.Itoa(int(after)),
	}
}

// StatusChanges returns one record per status that differs between before and after
func StatusChanges(before, after *Host) []ChangeRecord {
	var changes []ChangeRecord
	if before.ManagementStatus != after.ManagementStatus {
		changes = append(changes, ManagementChange(after.IP, before.ManagementStatus, after.ManagementStatus))
	}
	if before.DeviceStatus != after.DeviceStatus {
		changes = append(changes, DeviceChange(after.IP, before.DeviceStatus, after.DeviceStatus))
	}
	return changes
}
