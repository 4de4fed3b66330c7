// Package export renders host lists as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirychukyurii/hostdesk/internal/model"
)

// SheetName is the worksheet holding exported hosts
const SheetName = "Hosts"

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var hostColumns = []string{
	"IP", "Vendor", "Region", "CPU (cores)", "Memory (GB)", "Disk (GB)", "Bandwidth (Mbps)",
	"OS", "Online Date", "Owner", "Department", "Shared Department", "Purpose",
	"Enable Status", "Management Status", "Device Status",
}

// WriteHosts writes one row per host, in the given order, below a header row
func WriteHosts(w io.Writer, hosts []model.Host) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(hostColumns), 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	cells := make([]any, len(hostColumns))
	for i, name := range hostColumns {
		cells[i] = excelize.Cell{StyleID: header, Value: name}
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, h := range hosts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, hostRow(h)); err != nil {
			return fmt.Errorf("failed to write host %s: %w", h.IP, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.Write(w)
}

func hostRow(h model.Host) []any {
	return []any{
		h.IP,
		h.Vendor,
		h.Region,
		h.CPU,
		h.Memory,
		h.Disk,
		h.Bandwidth,
		h.OS,
		string(h.OnlineDate),
		h.Owner,
		h.Department,
		h.SharedDepartment,
		h.Purpose,
		h.EnableStatus.String(),
		h.ManagementStatus.String(),
		h.DeviceStatus.String(),
	}
}
