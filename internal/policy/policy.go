// Package policy evaluates declared security group rules against a flow
// without contacting AWS.
package policy

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/eleven-am/stackinfra/internal/domain"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Peer is the other end of a flow: an address, a declared security group, or
// both.
type Peer struct {
	IP    string
	Group string
}

type Flow struct {
	Peer     Peer
	Protocol string
	Port     int
}

func (f Flow) String() string {
	var peer []string
	if f.Peer.Group != "" {
		peer = append(peer, f.Peer.Group)
	}
	if f.Peer.IP != "" {
		peer = append(peer, f.Peer.IP)
	}
	return fmt.Sprintf("%s %d/%s", strings.Join(peer, "@"), f.Port, normalizeProtocol(f.Protocol))
}

type RuleEvaluation struct {
	Index    int
	Protocol string
	PortFrom int
	PortTo   int
	Matched  bool
	Reason   string
}

type EvaluationResult struct {
	Allowed     bool
	Reason      string
	Evaluations []RuleEvaluation
}

// Evaluate checks the flow against sg's rules in the given direction. A flow
// is allowed when any rule matches; evaluation records every rule.
func Evaluate(sg *domain.SecurityGroup, dir Direction, f Flow) EvaluationResult {
	rules := sg.Ingress
	if dir == Outbound {
		rules = sg.Egress
	}

	result := EvaluationResult{Evaluations: make([]RuleEvaluation, 0, len(rules))}
	for i, rule := range rules {
		eval := RuleEvaluation{
			Index:    i,
			Protocol: normalizeProtocol(rule.Protocol),
			PortFrom: rule.FromPort,
			PortTo:   rule.ToPort,
		}
		eval.Matched, eval.Reason = ruleAllows(sg, rule, f)
		if eval.Matched && !result.Allowed {
			result.Allowed = true
			result.Reason = fmt.Sprintf("%s rule %d of %s allows %s", dir, i, sg.Name, f)
		}
		result.Evaluations = append(result.Evaluations, eval)
	}

	if !result.Allowed {
		result.Reason = fmt.Sprintf("no %s rule of %s allows %s", dir, sg.Name, f)
	}
	return result
}

func ruleAllows(sg *domain.SecurityGroup, rule domain.Rule, f Flow) (bool, string) {
	if !protocolMatches(rule.Protocol, f.Protocol) {
		return false, "protocol does not match"
	}
	if !rule.AllTraffic() && !portInRange(f.Port, rule.FromPort, rule.ToPort) {
		return false, "port out of range"
	}

	if f.Peer.IP != "" {
		for _, cidr := range rule.CIDRBlocks {
			if ipMatchesCIDR(f.Peer.IP, cidr) {
				return true, "address in " + cidr
			}
		}
	}
	if f.Peer.Group != "" {
		if rule.Self && f.Peer.Group == sg.Name {
			return true, "member of the same group"
		}
		for _, ref := range rule.SecurityGroups {
			if ref.Resource == f.Peer.Group {
				return true, "member of " + ref.Resource
			}
		}
	}
	return false, "peer does not match"
}

func ipMatchesCIDR(ip, cidr string) bool {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return prefix.Contains(addr)
}

func protocolMatches(ruleProtocol, flowProtocol string) bool {
	rule := normalizeProtocol(ruleProtocol)
	if rule == "all" {
		return true
	}
	return rule == normalizeProtocol(flowProtocol)
}

func portInRange(port, fromPort, toPort int) bool {
	if fromPort == -1 && toPort == -1 {
		return true
	}
	return port >= fromPort && port <= toPort
}

func normalizeProtocol(p string) string {
	switch p {
	case "", domain.ProtocolAll, "all":
		return "all"
	case "6":
		return "tcp"
	case "17":
		return "udp"
	default:
		return strings.ToLower(p)
	}
}
