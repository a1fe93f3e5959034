package cluster

import (
	"fmt"
	"os"

	consul "github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes one session server instance.
type Registration struct {
	ServiceName string
	// Host is advertised to clients and used for the health check URL.
	// Empty means the machine hostname.
	Host       string
	Port       int
	HealthPort int
	Tags       []string
}

// ServiceID is unique per host.
func (r Registration) ServiceID() string {
	return fmt.Sprintf("%s-%s", r.ServiceName, r.Host)
}

// RegisterService registers the instance with an HTTP health check on
// /health and returns a function that deregisters it.
func RegisterService(client *consul.Client, reg Registration, log zerolog.Logger) (func() error, error) {
	if reg.Host == "" {
		reg.Host = os.Getenv("HOSTNAME")
	}
	if reg.Host == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve hostname: %w", err)
		}
		reg.Host = h
	}
	id := reg.ServiceID()

	registration := &consul.AgentServiceRegistration{
		ID:      id,
		Name:    reg.ServiceName,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", reg.Host, reg.HealthPort),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(registration); err != nil {
		return nil, fmt.Errorf("register %s: %w", id, err)
	}
	log.Info().Str("service", reg.ServiceName).Str("id", id).Msg("registered in consul")

	return func() error {
		if err := client.Agent().ServiceDeregister(id); err != nil {
			return fmt.Errorf("deregister %s: %w", id, err)
		}
		log.Info().Str("id", id).Msg("deregistered from consul")
		return nil
	}, nil
}
