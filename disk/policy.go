// Package disk picks which mounted filesystems the disk space metric
// reports on.
package disk

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"sysbar/format"
	"sysbar/models"
)

// Mode selects between reporting every qualifying disk and only the
// largest one.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeLargest Mode = "largest"
)

// AllMounts in the mount list disables the explicit mount filter.
const AllMounts = "all"

// NoDisk is rendered when nothing passes the filters.
const NoDisk = "no qualifying disk"

// DefaultLargestMinSize is the capacity floor of ModeLargest when none is
// configured.
const DefaultLargestMinSize = 256 << 30

var pseudoTypes = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "ramfs": true, "overlay": true,
	"overlayfs": true, "aufs": true, "proc": true, "sysfs": true,
	"cgroup": true, "cgroup2": true, "devpts": true, "securityfs": true,
	"pstore": true, "debugfs": true, "tracefs": true, "configfs": true,
	"fusectl": true, "mqueue": true, "hugetlbfs": true, "autofs": true,
	"binfmt_misc": true, "bpf": true, "nsfs": true, "efivarfs": true,
	"rpc_pipefs": true, "selinuxfs": true, "squashfs": true, "iso9660": true,
	"fuse.lxcfs": true, "fuse.portal": true, "fuse.gvfsd-fuse": true,
	"fuse.snapfuse": true, "nullfs": true, "devfs": true, "autofs4": true,
}

var virtualPrefixes = []string{
	"/run",
	"/sys",
	"/dev",
	"/proc",
	"/snap",
	"/var/snap",
	"/var/lib/docker",
	"/var/lib/containers",
	"/var/lib/kubelet",
}

var localTypes = map[string]bool{
	"ext2": true, "ext3": true, "ext4": true, "xfs": true, "btrfs": true,
	"zfs": true, "f2fs": true, "jfs": true, "reiserfs": true, "bcachefs": true,
	"apfs": true, "hfs": true, "hfsplus": true, "ntfs": true, "ntfs3": true,
	"refs": true, "vfat": true, "exfat": true, "fuseblk": true, "ufs": true,
}

var blockDevice = regexp.MustCompile(`^(/dev/(sd|hd|vd|xvd|nvme|mmcblk|md|dm-|mapper/|disk)|[A-Za-z]:)`)

// Policy filters and ranks filesystems.
type Policy struct {
	Mode    Mode
	Mounts  []string
	MinSize uint64
}

func (p Policy) minSize() uint64 {
	if p.MinSize == 0 && p.Mode == ModeLargest {
		return DefaultLargestMinSize
	}
	return p.MinSize
}

func (p Policy) allMounts() bool {
	return len(p.Mounts) == 0 || slices.Contains(p.Mounts, AllMounts)
}

func underPrefix(mount, prefix string) bool {
	return mount == prefix || strings.HasPrefix(mount, prefix+"/")
}

// Qualifies reports whether fs survives every exclusion filter.
func (p Policy) Qualifies(fs models.Filesystem) bool {
	fsType := strings.ToLower(fs.Type)
	if pseudoTypes[fsType] || fs.Size == 0 {
		return false
	}
	for _, prefix := range virtualPrefixes {
		if underPrefix(fs.Mount, prefix) {
			return false
		}
	}
	if !localTypes[fsType] && !blockDevice.MatchString(fs.Device) {
		return false
	}
	if fs.Size < p.minSize() {
		return false
	}
	if !p.allMounts() && !slices.Contains(p.Mounts, fs.Mount) {
		return false
	}
	return true
}

// Select returns the candidates in input order, or only the largest one in
// ModeLargest. Without an explicit mount list a device mounted twice is
// reported once.
func (p Policy) Select(filesystems []models.Filesystem) []models.Filesystem {
	var candidates []models.Filesystem
	seen := make(map[string]bool)
	for _, fs := range filesystems {
		if !p.Qualifies(fs) {
			continue
		}
		if p.allMounts() && fs.Device != "" && seen[fs.Device] {
			continue
		}
		seen[fs.Device] = true
		candidates = append(candidates, fs)
	}

	if p.Mode != ModeLargest || len(candidates) == 0 {
		return candidates
	}

	largest := candidates[0]
	for _, fs := range candidates[1:] {
		if fs.Size > largest.Size {
			largest = fs
		}
	}
	return []models.Filesystem{largest}
}

// Text renders the selected candidates joined by " | ", or NoDisk.
func (p Policy) Text(filesystems []models.Filesystem) string {
	selected := p.Select(filesystems)
	if len(selected) == 0 {
		return "$(database)" + NoDisk
	}

	parts := make([]string, 0, len(selected))
	for _, fs := range selected {
		parts = append(parts, fmt.Sprintf("$(database)%s %s%% %s/%s",
			fs.Mount,
			format.Fixed(fs.UsedPercent(), 1),
			format.Pretty(float64(fs.Used)),
			format.Pretty(float64(fs.Size)),
		))
	}
	return strings.Join(parts, " | ")
}
