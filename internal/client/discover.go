package client

import (
	"fmt"

	"nsulife/internal/services/cluster"

	"github.com/rs/zerolog"
)

// Discover finds a healthy session server registered in Consul. A non-empty
// serverID selects that instance only.
func Discover(consulAddrs, service, serverID string, log zerolog.Logger) (string, int, error) {
	c, err := cluster.NewConsulClient(consulAddrs, log)
	if err != nil {
		return "", 0, err
	}
	opts := cluster.DiscoveryOptions{Mode: cluster.ModeAnyHealthy}
	if serverID != "" {
		opts = cluster.DiscoveryOptions{Mode: cluster.ModeSpecific, SpecificID: serverID}
	}
	addr, err := cluster.Discover(c, service, opts)
	if err != nil {
		return "", 0, fmt.Errorf("discover %s: %w", service, err)
	}
	return cluster.SplitHostPort(addr)
}
