package models

// Throughput is a pair of byte rates per second. For network In is
// received and Out is sent; for disks In is read and Out is written.
type Throughput struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
}

type LatencyInfo struct {
	Target  string  `json:"target"`
	Latency float64 `json:"latency"`
	Success bool    `json:"success"`
}
