package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/distatus/battery"

	"sysbar/models"
)

// Battery reports the first battery that has a usable charge reading.
// Hosts without one return ErrUnavailable.
func (s *HostSource) Battery(ctx context.Context) (models.BatteryInfo, error) {
	return readBattery(s.batteries)
}

func readBattery(getAll func() ([]*battery.Battery, error)) (models.BatteryInfo, error) {
	batteries, err := getAll()
	// a partial error still carries the batteries that could be read
	var partial battery.Errors
	if err != nil && !errors.As(err, &partial) {
		return models.BatteryInfo{}, fmt.Errorf("battery: %w", err)
	}

	for _, b := range batteries {
		if b == nil || b.Full <= 0 {
			continue
		}
		return models.BatteryInfo{
			Percent:  min(b.Current/b.Full*100, 100),
			Charging: b.State.Raw == battery.Charging,
		}, nil
	}

	return models.BatteryInfo{}, ErrUnavailable
}
