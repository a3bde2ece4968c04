//go:build windows
// +build windows

package workload

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

// Win32_ComputerSystem mirrors the WMI class of the same name; the type
// name is what wmi.CreateQuery puts in the FROM clause.
type Win32_ComputerSystem struct {
	Manufacturer string
	Model        string
}

// hostModel looks up the machine make and model through WMI.
func hostModel(_ context.Context) (string, error) {
	var systems []Win32_ComputerSystem
	q := wmi.CreateQuery(&systems, "")
	if err := wmi.Query(q, &systems); err != nil {
		return "", err
	}
	if len(systems) == 0 {
		return "", fmt.Errorf("WMI returned no Win32_ComputerSystem rows")
	}
	return systems[0].Manufacturer + " " + systems[0].Model, nil
}
