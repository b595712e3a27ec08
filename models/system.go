package models

// SystemInfo holds OS details
type SystemInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Distro   string `json:"distro"`
	Version  string `json:"version"`
	Kernel   string `json:"kernel"`
	Arch     string `json:"arch"`
}

// MemoryInfo holds RAM stats in bytes
type MemoryInfo struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Active    uint64  `json:"active"`
	Percent   float64 `json:"percent"`
}

// LoadInfo holds Load Average stats (Unix only)
type LoadInfo struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// BatteryInfo holds the state of the first battery found
type BatteryInfo struct {
	Percent  float64 `json:"percent"`
	Charging bool    `json:"charging"`
}

// ContainerInfo counts Docker containers
type ContainerInfo struct {
	Running int `json:"running"`
	Total   int `json:"total"`
}
