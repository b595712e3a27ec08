package collector

import (
	"context"
	"fmt"
	"os"

	"sysbar/models"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

func (s *HostSource) hasDocker() bool {
	return os.Getenv("DOCKER_HOST") != "" || fileExists(s.dockerSocket)
}

// Containers counts running and total containers. Without a reachable
// Docker daemon it returns ErrUnavailable.
func (s *HostSource) Containers(ctx context.Context) (models.ContainerInfo, error) {
	if !s.hasDocker() {
		return models.ContainerInfo{}, ErrUnavailable
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return models.ContainerInfo{}, fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return models.ContainerInfo{}, fmt.Errorf("docker list: %w", err)
	}

	info := models.ContainerInfo{Total: len(containers)}
	for _, c := range containers {
		if c.State == "running" {
			info.Running++
		}
	}
	return info, nil
}
