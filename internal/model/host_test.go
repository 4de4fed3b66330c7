package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatuses(t *testing.T) {
	es, err := ParseEnableStatus("deleted")
	require.NoError(t, err)
	assert.Equal(t, EnableDeleted, es)

	ms, err := ParseManagementStatus(" Poolable ")
	require.NoError(t, err)
	assert.Equal(t, ManagementPoolable, ms)

	ms, err = ParseManagementStatus("2")
	require.NoError(t, err)
	assert.Equal(t, ManagementLowUtilization, ms)

	ds, err := ParseDeviceStatus("metrics-missing")
	require.NoError(t, err)
	assert.Equal(t, DeviceMetricsMissing, ds)

	for _, bad := range []string{"0", "4", "-1", "unknown", ""} {
		_, err := ParseDeviceStatus(bad)
		assert.Error(t, err, bad)
	}
	_, err = ParseEnableStatus("3")
	assert.Error(t, err)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "active", EnableActive.String())
	assert.Equal(t, "low-utilization", ManagementLowUtilization.String())
	assert.Equal(t, "load-abnormal", DeviceLoadAbnormal.String())
	assert.Equal(t, "unknown", DeviceStatus(9).String())
	assert.Equal(t, "device-status", ChangeDeviceStatus.String())
}

func TestHostPredicates(t *testing.T) {
	h := Host{EnableStatus: EnableActive, ManagementStatus: ManagementPoolable, OS: "Windows Server 2016"}
	assert.True(t, h.IsActive())
	assert.True(t, h.IsPoolable())
	assert.True(t, h.IsWindows())

	h.EnableStatus = EnableDeleted
	assert.False(t, h.IsActive())
	assert.False(t, h.IsPoolable(), "deleted hosts are never poolable")

	h.OS = "CentOS 7"
	assert.False(t, h.IsWindows())
}

func TestNewHostDefaults(t *testing.T) {
	n := NewHost{Vendor: "AWS", OnlineDate: "2024/1/2", Owner: "alice"}
	h := n.Host("10.1.2.3")

	assert.Equal(t, "10.1.2.3", h.IP)
	assert.Equal(t, EnableActive, h.EnableStatus)
	assert.Equal(t, ManagementNormal, h.ManagementStatus)
	assert.Equal(t, DeviceNormal, h.DeviceStatus)
	assert.Equal(t, Date("2024-01-02"), h.OnlineDate)
}

func TestHostPatchApply(t *testing.T) {
	h := Host{IP: "10.0.0.1", Owner: "alice", CPU: 2, ManagementStatus: ManagementPoolable, DeviceStatus: DeviceNormal}
	owner, cpu, device := "bob", 8, DeviceLoadAbnormal
	date := Date("2024/5/6")

	(&HostPatch{Owner: &owner, CPU: &cpu, DeviceStatus: &device, OnlineDate: &date}).Apply(&h)

	assert.Equal(t, "10.0.0.1", h.IP)
	assert.Equal(t, "bob", h.Owner)
	assert.Equal(t, 8, h.CPU)
	assert.Equal(t, DeviceLoadAbnormal, h.DeviceStatus)
	assert.Equal(t, ManagementPoolable, h.ManagementStatus, "nil fields are untouched")
	assert.Equal(t, Date("2024-05-06"), h.OnlineDate)
}

func TestStatusChanges(t *testing.T) {
	before := Host{IP: "10.0.0.1", ManagementStatus: ManagementPoolable, DeviceStatus: DeviceLoadAbnormal}

	after := before
	assert.Empty(t, StatusChanges(&before, &after))

	after.ManagementStatus = ManagementNormal
	after.DeviceStatus = DeviceNormal
	changes := StatusChanges(&before, &after)
	require.Len(t, changes, 2)

	assert.Equal(t, ChangeManagementStatus, changes[0].Kind)
	assert.Equal(t, "3", changes[0].Before)
	assert.Equal(t, "1", changes[0].After)
	assert.Equal(t, "10.0.0.1", changes[0].IP)

	assert.Equal(t, ChangeDeviceStatus, changes[1].Kind)
	assert.Equal(t, "3", changes[1].Before)
	assert.Equal(t, "1", changes[1].After)
}

func TestHostRef(t *testing.T) {
	h := Host{Vendor: "AWS", Region: "Nanjing", OS: "CentOS 7", Owner: "alice", Department: "QA",
		EnableStatus: EnableDeleted, ManagementStatus: ManagementNormal, DeviceStatus: DeviceNormal}

	assert.Equal(t, &HostRef{Vendor: "AWS", Region: "Nanjing", OS: "CentOS 7", Owner: "alice", Department: "QA",
		EnableStatus: EnableDeleted, ManagementStatus: ManagementNormal, DeviceStatus: DeviceNormal}, h.Ref())
}
