package collector

import (
	"context"
	"os"
	"os/exec"
)

type Capabilities struct {
	HasDockerSocket bool
	HasBattery      bool
	HasCPUSensor    bool
	HasGPUTool      bool
}

// DetectCapabilities checks the optional data sources once at startup and
// logs what is available. Missing capabilities only mean the matching
// metrics render empty.
func (s *HostSource) DetectCapabilities(ctx context.Context, gpuTool string) Capabilities {
	_, batteryErr := s.Battery(ctx)
	_, tempErr := s.CPUTemperature(ctx)

	caps := Capabilities{
		HasDockerSocket: s.hasDocker(),
		HasBattery:      batteryErr == nil,
		HasCPUSensor:    tempErr == nil,
		HasGPUTool:      lookPath(gpuTool),
	}

	s.logCap("Docker", caps.HasDockerSocket, "container counts")
	s.logCap("Battery", caps.HasBattery, "battery level")
	s.logCap("Sensors", caps.HasCPUSensor, "cpu temperature")
	s.logCap("GPU", caps.HasGPUTool, gpuTool)
	return caps
}

func (s *HostSource) logCap(name string, available bool, desc string) {
	status := "unavailable"
	if available {
		status = "enabled"
	}
	s.log.Info("capability", "name", name, "status", status, "provides", desc)
}

func lookPath(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
