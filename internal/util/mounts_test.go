package util

import "testing"

func TestMatchMount(t *testing.T) {
	mounts := map[string]string{
		"/":          "ext4",
		"/mnt/nas":   "nfs4",
		"/mnt/share": "cifs",
		"/home":      "btrfs",
	}

	tests := []struct {
		path    string
		mount   string
		network bool
	}{
		{"/home/franz/sparkify-state.db", "/home", false},
		{"/mnt/nas/events/sparkify-state.db", "/mnt/nas", true},
		{"/mnt/nasty/file", "/", false},
		{"/mnt/share", "/mnt/share", true},
		{"/tmp/x", "/", false},
	}
	for _, tt := range tests {
		info := matchMount(tt.path, mounts)
		if info.MountPoint != tt.mount || info.Network != tt.network {
			t.Errorf("matchMount(%s) = %+v, want mount %s network %v", tt.path, info, tt.mount, tt.network)
		}
	}

	if info := matchMount("relative", mounts); info.MountPoint != "" {
		t.Errorf("expected no mount for relative path, got %+v", info)
	}
}

func TestIsNetworkFSType(t *testing.T) {
	for _, fs := range []string{"nfs", "NFS4", "cifs", "smb3", "fuse.sshfs"} {
		if !IsNetworkFSType(fs) {
			t.Errorf("expected %s to be a network filesystem", fs)
		}
	}
	for _, fs := range []string{"ext4", "xfs", "tmpfs", "overlay", "fuse.gocryptfs"} {
		if IsNetworkFSType(fs) {
			t.Errorf("expected %s to be local", fs)
		}
	}
}

func TestDetectMountTempDir(t *testing.T) {
	info, err := DetectMount(t.TempDir())
	if err != nil {
		t.Fatalf("DetectMount failed: %v", err)
	}
	if info.Network {
		t.Logf("WARNING: temp directory is on network storage (%s)", info.FSType)
	}
}
