package cluster

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"

	consul "github.com/hashicorp/consul/api"
)

// ErrNoInstance is returned when no healthy instance matches.
var ErrNoInstance = errors.New("no healthy instance")

type DiscoveryMode int

const (
	ModeAnyHealthy DiscoveryMode = iota
	ModeSpecific
)

type DiscoveryOptions struct {
	Mode DiscoveryMode
	// SpecificID is the service id wanted in ModeSpecific.
	SpecificID string
}

// Discover returns host:port of a healthy instance of serviceName.
func Discover(client *consul.Client, serviceName string, opts DiscoveryOptions) (string, error) {
	switch opts.Mode {
	case ModeSpecific:
		if opts.SpecificID == "" {
			return "", errors.New("specific discovery needs a service id")
		}
		return discoverSpecific(client, serviceName, opts.SpecificID)
	default:
		return DiscoverAnyHealthy(client, serviceName)
	}
}

// DiscoverAnyHealthy picks one passing instance at random.
func DiscoverAnyHealthy(client *consul.Client, serviceName string) (string, error) {
	entries, err := healthy(client, serviceName)
	if err != nil {
		return "", err
	}
	return entryAddr(entries[rand.IntN(len(entries))]), nil
}

func discoverSpecific(client *consul.Client, serviceName, id string) (string, error) {
	entries, err := healthy(client, serviceName)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Service.ID == id {
			return entryAddr(e), nil
		}
	}
	return "", fmt.Errorf("%s/%s: %w", serviceName, id, ErrNoInstance)
}

func healthy(client *consul.Client, serviceName string) ([]*consul.ServiceEntry, error) {
	entries, _, err := client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", serviceName, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", serviceName, ErrNoInstance)
	}
	return entries, nil
}

func entryAddr(e *consul.ServiceEntry) string {
	addr := e.Service.Address
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	return net.JoinHostPort(addr, strconv.Itoa(e.Service.Port))
}

// SplitHostPort parses a discovered address for client.Session.Connect.
func SplitHostPort(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", p, err)
	}
	return host, port, nil
}
