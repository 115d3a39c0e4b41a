// Package domainmetrics derives structural authority signals from a host
// name: TLD class, name length, dash and subdomain structure, and a
// heuristic age band.
package domainmetrics

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/pkg/types"
)

const defaultTLDAuthority = 4

// tldAuthority maps the last label of a host to its authority weight (0–10).
var tldAuthority = map[string]int{
	"edu":  10,
	"gov":  10,
	"org":  9,
	"com":  8,
	"net":  7,
	"info": 6,
	"biz":  5,
	"tr":   7,
	"de":   8,
	"uk":   8,
	"fr":   7,
	"ca":   7,
	"au":   7,
	"jp":   8,
}

var (
	popularTLDs = map[string]bool{"com": true, "org": true, "net": true, "edu": true, "gov": true}
	localTLDs   = map[string]bool{"tr": true, "de": true, "fr": true, "uk": true, "jp": true}
)

// Length thresholds on the registrable name (without its suffix).
const (
	shortNameMax  = 10
	mediumNameMax = 15
)

// TLDAuthority returns the authority weight for tld. Unknown TLDs score 4.
func TLDAuthority(tld string) int {
	if v, ok := tldAuthority[strings.ToLower(tld)]; ok {
		return v
	}
	return defaultTLDAuthority
}

// Estimate computes DomainMetrics for host. The age estimate is drawn from
// src; everything else is a pure function of host.
func Estimate(host string, src jitter.Source) types.DomainMetrics {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	suffix, _ := publicsuffix.PublicSuffix(registrable)
	name := strings.TrimSuffix(registrable, "."+suffix)

	tld := host
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		tld = host[i+1:]
	}

	m := types.DomainMetrics{
		Domain:       host,
		Name:         name,
		TLD:          tld,
		Popular:      popularTLDs[tld],
		Local:        localTLDs[tld],
		Length:       len(name),
		HasDash:      strings.Contains(name, "-"),
		HasSubdomain: strings.TrimPrefix(host, "www.") != registrable,
		TLDAuthority: TLDAuthority(tld),
	}
	m.Short = m.Length <= shortNameMax
	m.LengthScore = lengthScore(m.Length)
	m.StructureScore = structureScore(m.HasDash, m.HasSubdomain)
	m.AgeYears = estimateAge(m, src)
	return m
}

func lengthScore(n int) int {
	switch {
	case n <= shortNameMax:
		return 10
	case n <= mediumNameMax:
		return 7
	default:
		return 5
	}
}

func structureScore(dash, subdomain bool) int {
	if !dash && !subdomain {
		return 10
	}
	return 6
}

// estimateAge is a proxy for domains whose registration date is unknown.
// It is not a measurement.
func estimateAge(m types.DomainMetrics, src jitter.Source) int {
	switch {
	case m.Popular && m.Short && !m.HasDash:
		return jitter.Range(src, 5, 15)
	case m.Popular && !m.HasDash:
		return jitter.Range(src, 2, 9)
	case m.Local:
		return jitter.Range(src, 1, 6)
	default:
		return 1
	}
}
