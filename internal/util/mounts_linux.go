//go:build linux

package util

import (
	"bufio"
	"io"
	"os"
	"strings"
)

func platformMount(path string) (*MountInfo, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return nil, err
	}
	return matchMount(path, mounts), nil
}

// parseMounts reads /proc/mounts lines: device mountpoint fstype options dump pass
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		// spaces in mount points are octal-escaped
		mp := strings.ReplaceAll(fields[1], `\040`, " ")
		mounts[mp] = fields[2]
	}
	return mounts, scanner.Err()
}
