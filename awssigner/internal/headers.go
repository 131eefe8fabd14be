package awssigner

// IgnoredHeaders are request headers excluded from signing. Authorization is
// recomputed by the signer, the rest vary between client hops and would
// invalidate the signature on proxied requests.
var IgnoredHeaders = Rules{
	ExcludeList{
		MapRule{
			"Authorization":   struct{}{},
			"User-Agent":      struct{}{},
			"X-Amzn-Trace-Id": struct{}{},
			"Expect":          struct{}{},
		},
	},
}

// Rule is a header filtering predicate.
type Rule interface {
	IsValid(value string) bool
}

// Rules houses a set of rules, a header is accepted if any rule applies.
type Rules []Rule

// IsValid will iterate through all rules and see if any rules
// apply to the value and supports nested rules
func (r Rules) IsValid(value string) bool {
	for _, rule := range r {
		if rule.IsValid(value) {
			return true
		}
	}
	return false
}

// MapRule generic rule for maps
type MapRule map[string]struct{}

// IsValid for the map Rule satisfies whether it exists in the map
func (m MapRule) IsValid(value string) bool {
	_, ok := m[value]
	return ok
}

// ExcludeList inverts the rule it wraps.
type ExcludeList struct {
	Rule
}

// IsValid checks if the value is NOT within the wrapped rule.
func (b ExcludeList) IsValid(value string) bool {
	return !b.Rule.IsValid(value)
}
