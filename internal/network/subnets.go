package network

import (
	"fmt"
	"math/bits"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/eleven-am/stackinfra/internal/config"
	"github.com/eleven-am/stackinfra/internal/domain"
)

const minSubnetPrefix = 28

// layoutSubnets splits block in half, public then private, and each half into
// one block per availability zone.
func layoutSubnets(block string, azCount int) ([]domain.SubnetLayout, error) {
	_, base, err := net.ParseCIDR(block)
	if err != nil {
		return nil, &domain.InvalidConfigError{Key: config.KeyNetworkCIDR, Reason: err.Error()}
	}
	ones, _ := base.Mask.Size()
	zoneBits := bits.Len(uint(azCount - 1))
	if ones+1+zoneBits > minSubnetPrefix {
		return nil, &domain.InvalidConfigError{
			Key:    config.KeyNetworkCIDR,
			Reason: fmt.Sprintf("%s is too small for %d availability zones", block, azCount),
		}
	}

	var layout []domain.SubnetLayout
	for tierIndex, tier := range []domain.SubnetTier{domain.TierPublic, domain.TierPrivate} {
		half, err := cidr.Subnet(base, 1, tierIndex)
		if err != nil {
			return nil, fmt.Errorf("split %s for %s subnets: %w", block, tier, err)
		}
		for zone := 0; zone < azCount; zone++ {
			subnet, err := cidr.Subnet(half, zoneBits, zone)
			if err != nil {
				return nil, fmt.Errorf("split %s for zone %d: %w", half, zone, err)
			}
			layout = append(layout, domain.SubnetLayout{
				Tier:      tier,
				ZoneIndex: zone,
				CIDRBlock: subnet.String(),
			})
		}
	}
	return layout, nil
}
