package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MountInfo describes the filesystem a path lives on
type MountInfo struct {
	MountPoint string
	FSType     string
	Network    bool // nfs, cifs/smb, sshfs and similar
}

var networkFSTypes = []string{"nfs", "cifs", "smb", "ncpfs", "9p", "fuse.sshfs", "fuse.rclone", "glusterfs", "ceph"}

// IsNetworkFSType reports whether fsType names a network filesystem
func IsNetworkFSType(fsType string) bool {
	fsType = strings.ToLower(fsType)
	for _, n := range networkFSTypes {
		if strings.HasPrefix(fsType, n) {
			return true
		}
	}
	return false
}

// DetectMount returns the mount that holds path. The path need not exist
// yet; the longest matching mount point wins.
func DetectMount(path string) (*MountInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return platformMount(abs)
}

// IsNetworkPath reports whether path is on a network filesystem.
// Detection failures count as local.
func IsNetworkPath(path string) bool {
	info, err := DetectMount(path)
	if err != nil {
		return false
	}
	return info.Network
}

// matchMount picks the longest mount point containing path from a
// mount point -> fs type table
func matchMount(path string, mounts map[string]string) *MountInfo {
	best := ""
	for mp := range mounts {
		if !within(path, mp) {
			continue
		}
		if len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return &MountInfo{}
	}
	fsType := mounts[best]
	return &MountInfo{MountPoint: best, FSType: fsType, Network: IsNetworkFSType(fsType)}
}

func within(path, mountPoint string) bool {
	if mountPoint == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}
