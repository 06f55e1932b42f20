// Package models holds the data types shared across autoissue's classifier,
// scheduler, worktree manager, and executor.
package models

// Domain is a coarse label classifying a task by the area of code it
// touches. The scheduler uses it as its unit of conflict reasoning.
type Domain string

const (
	DomainBackend        Domain = "backend"
	DomainFrontend       Domain = "frontend"
	DomainDatabase       Domain = "database"
	DomainInfrastructure Domain = "infrastructure"
	DomainSecurity       Domain = "security"
	DomainTesting        Domain = "testing"
	DomainDocumentation  Domain = "documentation"
	DomainUnknown        Domain = "unknown"
)

// domainOrder is the canonical tie-break order used by the classifier and
// by anything that must pick among several equally-supported domains.
var domainOrder = []Domain{
	DomainBackend,
	DomainFrontend,
	DomainDatabase,
	DomainInfrastructure,
	DomainSecurity,
	DomainTesting,
	DomainDocumentation,
}

// IsValidDomain reports whether s is one of the recognized domains,
// including unknown.
func IsValidDomain(s Domain) bool {
	if s == DomainUnknown {
		return true
	}
	for _, d := range domainOrder {
		if d == s {
			return true
		}
	}
	return false
}

// CanonicalOrder returns the tie-break ordering over the non-unknown
// domains, backend first.
func CanonicalOrder() []Domain {
	out := make([]Domain, len(domainOrder))
	copy(out, domainOrder)
	return out
}

// AreDomainsCompatible reports whether two tasks in these domains may run
// concurrently. The relation is symmetric and non-transitive:
//
//  1. unknown is incompatible with everything, including itself.
//  2. A domain is incompatible with itself.
//  3. database is incompatible with everything.
//  4. Otherwise, compatible.
func AreDomainsCompatible(a, b Domain) bool {
	if a == DomainUnknown || b == DomainUnknown {
		return false
	}
	if a == b {
		return false
	}
	if a == DomainDatabase || b == DomainDatabase {
		return false
	}
	return true
}

// AreDomainsCompatibleWithAll reports whether candidate is pairwise
// compatible with every domain in running.
func AreDomainsCompatibleWithAll(candidate Domain, running []Domain) bool {
	for _, r := range running {
		if !AreDomainsCompatible(candidate, r) {
			return false
		}
	}
	return true
}
