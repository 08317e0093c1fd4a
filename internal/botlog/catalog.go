package botlog

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"regexp"
)

// Catalog is a compiled, ordered list of bot signatures. Order encodes
// match precedence and is preserved exactly as authored: more specific bots
// must be listed before generic crawlers.
type Catalog struct {
	rules []compiledSignature
}

type compiledSignature struct {
	sig    Signature
	regex  *regexp.Regexp // set for user_agent_regex entries
	prefix netip.Prefix   // set for ip_cidr entries
}

// NewCatalog compiles raw signatures. Any entry that fails to compile makes
// the whole catalog unusable, so a bad rule can never silently
// under-classify the rest of the file.
func NewCatalog(signatures []Signature) (*Catalog, error) {
	rules := make([]compiledSignature, 0, len(signatures))
	for i, sig := range signatures {
		if sig.BotName == "" {
			return nil, fmt.Errorf("entry %d: empty bot_name: %w", i, ErrCatalogInvalid)
		}
		if sig.Pattern == "" {
			return nil, fmt.Errorf("entry %d (%s): empty pattern: %w", i, sig.BotName, ErrCatalogInvalid)
		}
		rule := compiledSignature{sig: sig}
		switch sig.MatchType {
		case MatchUserAgentRegex:
			re, err := regexp.Compile("(?i)" + sig.Pattern)
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s): %v: %w", i, sig.BotName, err, ErrCatalogInvalid)
			}
			rule.regex = re
		case MatchIPCIDR:
			prefix, err := netip.ParsePrefix(sig.Pattern)
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s): %v: %w", i, sig.BotName, err, ErrCatalogInvalid)
			}
			rule.prefix = prefix
		default:
			return nil, fmt.Errorf("entry %d (%s): unknown match_type %q: %w", i, sig.BotName, sig.MatchType, ErrCatalogInvalid)
		}
		rules = append(rules, rule)
	}
	return &Catalog{rules: rules}, nil
}

// LoadCatalog parses a JSON signature document and compiles it.
// The document is a JSON array so that authored order survives decoding.
func LoadCatalog(data []byte) (*Catalog, error) {
	var signatures []Signature
	if err := json.Unmarshal(data, &signatures); err != nil {
		return nil, fmt.Errorf("decode catalog: %v: %w", err, ErrCatalogInvalid)
	}
	if len(signatures) == 0 {
		return nil, fmt.Errorf("catalog has no entries: %w", ErrCatalogInvalid)
	}
	return NewCatalog(signatures)
}

// Len returns the number of compiled rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}
