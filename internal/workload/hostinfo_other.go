//go:build !windows
// +build !windows

package workload

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
)

// hostModel reports platform and kernel; hardware model is not generally
// readable without root outside Windows.
func hostModel(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelVersion), nil
}
