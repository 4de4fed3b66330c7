package model

import "fmt"

// Task types collected per channel
const (
	TaskTypeList   = "LIST"
	TaskTypeData   = "DATA"
	TaskTypeDetail = "DETAIL"
)

// TaskCounts holds task outcome counters.
// Total always equals Success + Failure + Empty + Deduplicated.
type TaskCounts struct {
	Total        int `json:"total"`
	Success      int `json:"success"`
	Failure      int `json:"failure"`
	Empty        int `json:"empty"`
	Deduplicated int `json:"deduplicated"`
}

// Validate checks the counters are non-negative and add up to Total
func (c TaskCounts) Validate() error {
	if c.Success < 0 || c.Failure < 0 || c.Empty < 0 || c.Deduplicated < 0 {
		return fmt.Errorf("task counts must not be negative")
	}
	if sum := c.Success + c.Failure + c.Empty + c.Deduplicated; sum != c.Total {
		return fmt.Errorf("task total %d does not match outcome sum %d", c.Total, sum)
	}
	return nil
}

// ChannelSummary aggregates task outcomes of one collection channel
type ChannelSummary struct {
	ID         string `json:"id"`
	Channel    string `json:"channel"`
	TaskType   string `json:"taskType"` // LIST | DATA | DETAIL
	SampleDate Date   `json:"sampleDate"`
	TaskCounts
}

// ChannelDetail is the per-business breakdown of a ChannelSummary
type ChannelDetail struct {
	ParentID   string `json:"parentId"`
	Business   string `json:"business"`
	IP         string `json:"ip"`
	SampleDate Date   `json:"sampleDate"`
	TaskCounts
}
