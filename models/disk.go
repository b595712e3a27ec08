package models

// Filesystem is one mounted filesystem with its capacity in bytes
type Filesystem struct {
	Mount  string `json:"mount"`
	Type   string `json:"type"`
	Device string `json:"device"`
	Size   uint64 `json:"size"`
	Used   uint64 `json:"used"`
}

// UsedPercent is Used/Size*100, zero for an empty filesystem
func (f Filesystem) UsedPercent() float64 {
	if f.Size == 0 {
		return 0
	}
	return float64(f.Used) / float64(f.Size) * 100
}
