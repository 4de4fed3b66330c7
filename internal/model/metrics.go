package model

// InefficiencyRecord is a weekly/monthly utilization sample of an underused host
type InefficiencyRecord struct {
	IP            string  `json:"ip"`
	SampleDate    Date    `json:"sampleDate"`
	CPUWeekly     float64 `json:"cpuWeekly"` // percent
	MemoryWeekly  float64 `json:"memoryWeekly"`
	DiskWeekly    float64 `json:"diskWeekly"`
	NetInWeekly   float64 `json:"netInWeekly"` // MB/s
	NetOutWeekly  float64 `json:"netOutWeekly"`
	CPUMonthly    float64 `json:"cpuMonthly"`
	MemoryMonthly float64 `json:"memoryMonthly"`
	DiskMonthly   float64 `json:"diskMonthly"`
	NetInMonthly  float64 `json:"netInMonthly"`
	NetOutMonthly float64 `json:"netOutMonthly"`
}

// MetricRecord is a point-in-time utilization sample of a host
type MetricRecord struct {
	IP           string   `json:"ip"`
	SampleDate   Date     `json:"sampleDate"`
	CPU          float64  `json:"cpu"` // percent
	Memory       float64  `json:"memory"`
	Disk         float64  `json:"disk"`
	NetIn        float64  `json:"netIn"` // MB/s
	NetOut       float64  `json:"netOut"`
	ProcessCount int      `json:"processCount"`
	TaskCount    int      `json:"taskCount"`
	Processes    []string `json:"processes"`
}

// InefficiencyView is an inefficiency sample joined with its host
type InefficiencyView struct {
	InefficiencyRecord
	Host *HostRef `json:"host"`
}

// MetricView is a metric sample joined with its host
type MetricView struct {
	MetricRecord
	Host *HostRef `json:"host"`
}
