package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Target identifies one monitored endpoint. Targets are parsed once at
// startup and never mutated afterwards.
type Target struct {
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Protocol Protocol `yaml:"protocol" json:"protocol"`
	Name     string   `yaml:"name" json:"name"`
}

// Addr returns the dialable host:port address.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// FolderName returns the target name with characters that are unsafe in
// file paths replaced.
func (t Target) FolderName() string {
	replacer := strings.NewReplacer(":", "_", "/", "_")
	return replacer.Replace(t.Name)
}

// ParseTarget parses a target spec in the form "host", "host:port" or
// "host:port/protocol". The port defaults to 53 and the protocol to tcp.
// The display name defaults to "host:port/protocol".
func ParseTarget(spec string) (Target, error) {
	if spec == "" {
		return Target{}, fmt.Errorf("empty target spec")
	}

	target := Target{Port: 53, Protocol: ProtocolTCP}

	hostPort := spec
	if slash := strings.LastIndex(spec, "/"); slash >= 0 {
		hostPort = spec[:slash]
		switch proto := Protocol(strings.ToLower(spec[slash+1:])); proto {
		case ProtocolTCP, ProtocolUDP:
			target.Protocol = proto
		default:
			return Target{}, fmt.Errorf("unknown protocol %q in target spec %q", spec[slash+1:], spec)
		}
	}

	if colon := strings.LastIndex(hostPort, ":"); colon >= 0 {
		port, err := strconv.Atoi(hostPort[colon+1:])
		if err != nil || port < 1 || port > 65535 {
			return Target{}, fmt.Errorf("invalid port in target spec %q", spec)
		}
		target.Port = port
		target.Host = hostPort[:colon]
	} else {
		target.Host = hostPort
	}

	if target.Host == "" {
		return Target{}, fmt.Errorf("missing host in target spec %q", spec)
	}

	target.Name = fmt.Sprintf("%s:%d/%s", target.Host, target.Port, target.Protocol)
	return target, nil
}

// ParseTargets parses a list of target specs, rejecting duplicates by
// display name so every configured endpoint maps to exactly one Target.
func ParseTargets(specs []string) ([]Target, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one target is required")
	}

	seen := make(map[string]bool, len(specs))
	targets := make([]Target, 0, len(specs))
	for _, spec := range specs {
		target, err := ParseTarget(spec)
		if err != nil {
			return nil, err
		}
		if seen[target.Name] {
			return nil, fmt.Errorf("duplicate target %q", target.Name)
		}
		seen[target.Name] = true
		targets = append(targets, target)
	}
	return targets, nil
}
