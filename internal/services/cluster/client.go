// Package cluster registers the session server in Consul and finds it again
// from clients.
package cluster

import (
	"errors"
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// ErrNoConsul is returned when none of the given agents answer.
var ErrNoConsul = errors.New("no consul agent available")

// NewConsulClient tries each comma separated agent address in turn and
// returns a client for the first one that reports a raft leader.
func NewConsulClient(addrs string, log zerolog.Logger) (*consul.Client, error) {
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			log.Warn().Err(err).Str("agent", node).Msg("consul client")
			continue
		}
		if _, err := client.Status().Leader(); err != nil {
			log.Warn().Err(err).Str("agent", node).Msg("consul agent not responding")
			continue
		}
		log.Info().Str("agent", node).Msg("connected to consul")
		return client, nil
	}
	return nil, fmt.Errorf("%w in %q", ErrNoConsul, addrs)
}
