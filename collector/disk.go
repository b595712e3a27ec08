package collector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"sysbar/models"

	"github.com/shirou/gopsutil/v3/disk"
)

var (
	nvmePartition = regexp.MustCompile(`^nvme\d+n\d+p\d+$`)
	sdPartition   = regexp.MustCompile(`^(sd|vd|xvd|hd)[a-z]+\d+$`)
	mmcPartition  = regexp.MustCompile(`^mmcblk\d+p\d+$`)
)

// isWholeDisk drops partitions and virtual block devices so that the I/O of
// a disk is not counted once per partition.
func isWholeDisk(name string) bool {
	if strings.HasPrefix(name, "loop") ||
		strings.HasPrefix(name, "ram") ||
		strings.HasPrefix(name, "dm-") ||
		strings.HasPrefix(name, "zram") {
		return false
	}
	return !nvmePartition.MatchString(name) &&
		!sdPartition.MatchString(name) &&
		!mmcPartition.MatchString(name)
}

// DiskIO is the read/write rate summed over the physical disks.
func (s *HostSource) DiskIO(ctx context.Context) (models.Throughput, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return models.Throughput{}, fmt.Errorf("disk counters: %w", err)
	}

	var read, written uint64
	for name, c := range counters {
		if !isWholeDisk(name) {
			continue
		}
		read += c.ReadBytes
		written += c.WriteBytes
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disk.update(read, written, s.now()), nil
}

// Filesystems lists mounted filesystems with their capacity. Mounts whose
// usage cannot be read are skipped.
func (s *HostSource) Filesystems(ctx context.Context) ([]models.Filesystem, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("partitions: %w", err)
	}

	result := make([]models.Filesystem, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			s.log.Debug("failed to read filesystem usage", "mount", p.Mountpoint, "error", err)
			continue
		}

		result = append(result, models.Filesystem{
			Mount:  p.Mountpoint,
			Type:   p.Fstype,
			Device: p.Device,
			Size:   usage.Total,
			Used:   usage.Used,
		})
	}

	return result, nil
}
