// Package metrics holds the metric producers, the ordered registry that
// decides what gets polled, and the refresh loop that drives a sink.
package metrics

// ID names a metric. The set is closed; settings refer to metrics by these
// strings.
type ID string

const (
	CPU            ID = "cpu"
	MemoryActive   ID = "memoryActive"
	MemoryUsed     ID = "memoryUsed"
	Network        ID = "network"
	FileSystem     ID = "fileSystem"
	Battery        ID = "battery"
	CPUTemp        ID = "cpuTemp"
	CPUSpeed       ID = "cpuSpeed"
	OSDistro       ID = "osDistro"
	DiskSpace      ID = "diskSpace"
	Uptime         ID = "uptime"
	GPUUtilization ID = "gpuUtilization"
	GPUMemory      ID = "gpuMemory"
	GPUTemperature ID = "gpuTemperature"
	LoadAverage    ID = "loadAverage"
	Containers     ID = "containers"
	Latency        ID = "latency"
)

// DisplayOrder is the order metrics appear in on the bar.
var DisplayOrder = []ID{
	CPU,
	MemoryActive,
	MemoryUsed,
	Network,
	FileSystem,
	Battery,
	CPUTemp,
	CPUSpeed,
	OSDistro,
	DiskSpace,
	Uptime,
	GPUUtilization,
	GPUMemory,
	GPUTemperature,
	LoadAverage,
	Containers,
	Latency,
}
