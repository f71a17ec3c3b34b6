package config

import (
	"fmt"
	"net/netip"

	"github.com/caarlos0/env/v9"

	"github.com/eleven-am/stackinfra/internal/domain"
)

const (
	KeyNetworkCIDR = "NETWORK_CIDR"
	KeyAZCount     = "NETWORK_AZ_COUNT"
	KeyNATStrategy = "NETWORK_NAT_STRATEGY"

	maxAvailabilityZones = 6
)

type NetworkSettings struct {
	CIDRBlock   string `env:"NETWORK_CIDR" envDefault:"10.0.0.0/16"`
	AZCount     int    `env:"NETWORK_AZ_COUNT" envDefault:"2"`
	NATStrategy string `env:"NETWORK_NAT_STRATEGY" envDefault:"single"`
}

func (s NetworkSettings) Strategy() domain.NATStrategy {
	return domain.NATStrategy(s.NATStrategy)
}

// LoadNetworkSettings resolves the network settings from a, falling back to
// defaults for keys that are not set.
func LoadNetworkSettings(a Accessor) (NetworkSettings, error) {
	environment := make(map[string]string)
	for _, key := range []string{KeyNetworkCIDR, KeyAZCount, KeyNATStrategy} {
		if v, ok := a.Get(key); ok {
			environment[key] = v
		}
	}

	var s NetworkSettings
	if err := env.ParseWithOptions(&s, env.Options{Environment: environment}); err != nil {
		return NetworkSettings{}, fmt.Errorf("parse network settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return NetworkSettings{}, err
	}
	return s, nil
}

func (s NetworkSettings) Validate() error {
	prefix, err := netip.ParsePrefix(s.CIDRBlock)
	if err != nil {
		return &domain.InvalidConfigError{Key: KeyNetworkCIDR, Reason: err.Error()}
	}
	if !prefix.Addr().Is4() {
		return &domain.InvalidConfigError{Key: KeyNetworkCIDR, Reason: "must be an IPv4 block"}
	}
	if prefix.Masked() != prefix {
		return &domain.InvalidConfigError{Key: KeyNetworkCIDR, Reason: "host bits must be zero"}
	}
	if prefix.Bits() < 16 || prefix.Bits() > 28 {
		return &domain.InvalidConfigError{Key: KeyNetworkCIDR, Reason: "prefix length must be between /16 and /28"}
	}
	if s.AZCount < 1 || s.AZCount > maxAvailabilityZones {
		return &domain.InvalidConfigError{
			Key:    KeyAZCount,
			Reason: fmt.Sprintf("must be between 1 and %d", maxAvailabilityZones),
		}
	}
	if !s.Strategy().Valid() {
		return &domain.InvalidConfigError{
			Key:    KeyNATStrategy,
			Reason: fmt.Sprintf("unknown strategy %q", s.NATStrategy),
		}
	}
	return nil
}
