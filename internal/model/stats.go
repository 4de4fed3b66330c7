package model

// DashboardStats summarizes the active fleet for the dashboard
type DashboardStats struct {
	TotalHosts      int            `json:"totalHosts"`
	PublicPoolCount int            `json:"publicPoolCount"`
	WindowsCount    int            `json:"windowsCount"`
	LinuxCount      int            `json:"linuxCount"`
	OnlineCount     int            `json:"onlineCount"`
	CPUUsage        float64        `json:"cpuUsage"` // average percent over latest samples
	MemoryUsage     float64        `json:"memoryUsage"`
	DiskUsage       float64        `json:"diskUsage"`
	AbnormalCount   AbnormalCounts `json:"abnormalCount"`
}

// AbnormalCounts counts hosts above the usage threshold per resource
type AbnormalCounts struct {
	HighCPU    int `json:"highCpu"`
	HighMemory int `json:"highMemory"`
	HighDisk   int `json:"highDisk"`
	Offline    int `json:"offline"`
}
