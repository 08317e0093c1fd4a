package botlog

import "net/netip"

// Classify matches a record against the catalog in order and returns the
// first matching signature's identity, or the zero Classification when
// nothing matches. Unknown or malformed user agents simply fail to match.
func (c *Catalog) Classify(rec LogRecord) Classification {
	for _, rule := range c.rules {
		if rule.matches(rec) {
			return Classification{BotName: rule.sig.BotName, IsLLM: rule.sig.IsLLM}
		}
	}
	return Classification{}
}

func (r compiledSignature) matches(rec LogRecord) bool {
	switch r.sig.MatchType {
	case MatchUserAgentRegex:
		return rec.UserAgent != "" && r.regex.MatchString(rec.UserAgent)
	case MatchIPCIDR:
		addr, err := netip.ParseAddr(rec.ClientIP)
		if err != nil {
			return false
		}
		return r.prefix.Contains(addr)
	default:
		return false
	}
}
