package gpu

import (
	"context"
	"strconv"
	"strings"

	"sysbar/format"
)

const percentWidth = 3

// AllDevices as an index renders every device when more than one is present.
const AllDevices = -1

// pick returns the value for index, or device 0 when index is out of range.
func pick(values []string, index int) string {
	if index >= 0 && index < len(values) {
		return values[index]
	}
	return values[0]
}

func bracketed(values []string, render func(string) string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString("[")
		b.WriteString(render(v))
		b.WriteString("]")
	}
	return b.String()
}

func paddedPercent(v string) string {
	return format.PadLeft(v, percentWidth) + "%"
}

func paddedCelsius(v string) string {
	return format.PadLeft(v, percentWidth) + "°C"
}

// mebibytes converts the tool's MiB value to a formatted byte string.
func mebibytes(v string) (string, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return "", false
	}
	return format.Pretty(n * 1024 * 1024), true
}

func multi(values []string, index int) bool {
	return len(values) > 1 && index == AllDevices
}

// UtilizationText renders one bracketed, fixed-width segment per device
// when there are several and index is AllDevices, otherwise the selected
// device unbracketed.
func UtilizationText(values []string, index int) string {
	switch {
	case len(values) == 0:
		return ""
	case multi(values, index):
		return "$(chip)" + bracketed(values, paddedPercent)
	}
	return "$(chip)" + pick(values, index) + "%"
}

func TemperatureText(values []string, index int) string {
	switch {
	case len(values) == 0:
		return ""
	case multi(values, index):
		return "$(flame)" + bracketed(values, paddedCelsius)
	}
	return "$(flame)" + pick(values, index) + "°C"
}

// MemoryText shows used/total for a single device and only the used
// amount per device when there are several.
func MemoryText(used, total []string, index int) string {
	if len(used) == 0 {
		return ""
	}

	if multi(used, index) {
		var b strings.Builder
		for _, v := range used {
			u, ok := mebibytes(v)
			if !ok {
				return ""
			}
			b.WriteString("[" + u + "]")
		}
		return "$(repo)" + b.String()
	}

	if len(total) == 0 {
		return ""
	}
	u, ok := mebibytes(pick(used, index))
	if !ok {
		return ""
	}
	t, ok := mebibytes(pick(total, index))
	if !ok {
		return ""
	}
	return "$(repo)" + u + "/" + t
}

// Utilization queries and renders GPU utilization.
func (a *Adapter) Utilization(ctx context.Context, index int) string {
	return UtilizationText(a.Fetch(ctx, QueryUtilization).Values(), index)
}

func (a *Adapter) Temperature(ctx context.Context, index int) string {
	return TemperatureText(a.Fetch(ctx, QueryTemperature).Values(), index)
}

func (a *Adapter) Memory(ctx context.Context, index int) string {
	used := a.Fetch(ctx, QueryMemoryUsed).Values()
	if len(used) == 0 {
		return ""
	}
	// the multi device form does not need the totals
	if multi(used, index) {
		return MemoryText(used, nil, index)
	}
	return MemoryText(used, a.Fetch(ctx, QueryMemoryTotal).Values(), index)
}
