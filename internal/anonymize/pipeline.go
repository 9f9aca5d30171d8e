// Package anonymize applies k-anonymity and l-diversity passes to record
// sets. Both passes are pure functions over their inputs; independent
// requests can anonymize in parallel with no shared state.
package anonymize

import (
	"sort"
	"strings"

	dErrors "privacygate/pkg/domain-errors"
)

// Record is one row of a record set under anonymization. QuasiIdentifiers
// are the attributes an attacker could link on; Sensitive is the attribute
// l-diversity protects.
type Record struct {
	QuasiIdentifiers map[string]string
	Sensitive        string
}

// Result is the outcome of a successful anonymization run.
type Result struct {
	Records         []Record
	SuppressionRate float64
}

// Generalizer coarsens one quasi-identifier value before grouping, e.g.
// mapping an exact age to an age band or a zip code to a prefix.
type Generalizer func(value string) string

// Pipeline runs the fixed two-stage anonymization: k-anonymity first, then
// l-diversity on the k-anonymous groups. l-diversity's guarantee is defined
// relative to k-anonymous groups, so the pipeline exposes no way to run the
// stages independently.
type Pipeline struct {
	generalizers map[string]Generalizer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGeneralizer registers a generalization function for one
// quasi-identifier attribute.
func WithGeneralizer(attribute string, g Generalizer) Option {
	return func(p *Pipeline) {
		p.generalizers[attribute] = g
	}
}

// New constructs an anonymization pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{generalizers: make(map[string]Generalizer)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Anonymize generalizes and suppresses records until every retained record
// shares its quasi-identifiers with at least k-1 others and every retained
// group has at least l distinct sensitive values.
//
// When the resulting suppression rate exceeds suppressionThreshold the run
// is reported as a policy violation instead of returning the over-suppressed
// set: silently discarding too much data would mask both a utility failure
// and a parameter misconfiguration.
func (p *Pipeline) Anonymize(records []Record, k, l int, suppressionThreshold float64) (*Result, error) {
	if k < 1 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "k is %d, must be at least 1", k)
	}
	if l < 1 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "l is %d, must be at least 1", l)
	}
	if suppressionThreshold < 0 || suppressionThreshold > 1 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "suppression_threshold is %f, must be in [0, 1]", suppressionThreshold)
	}
	if len(records) == 0 {
		return &Result{Records: nil, SuppressionRate: 0}, nil
	}

	generalized := p.generalize(records)

	// Stage 1: k-anonymity. Groups smaller than k are suppressed entirely.
	groups := groupByQuasiIdentifiers(generalized)
	kAnonymous := make(map[string][]Record, len(groups))
	for key, group := range groups {
		if len(group) >= k {
			kAnonymous[key] = group
		}
	}

	// Stage 2: l-diversity over the k-anonymous groups. Groups whose
	// sensitive attribute has fewer than l distinct values are suppressed.
	var retained []Record
	keys := make([]string, 0, len(kAnonymous))
	for key := range kAnonymous {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		group := kAnonymous[key]
		if distinctSensitive(group) >= l {
			retained = append(retained, group...)
		}
	}

	rate := 1 - float64(len(retained))/float64(len(records))
	if rate > suppressionThreshold {
		return nil, dErrors.Newf(dErrors.CodeSuppressionThreshold,
			"suppression rate %.4f exceeds threshold %.4f; check k=%d l=%d against the record set", rate, suppressionThreshold, k, l)
	}

	return &Result{Records: retained, SuppressionRate: rate}, nil
}

// generalize returns a copy of records with generalizers applied. Records
// are copied so the caller's slice is never mutated.
func (p *Pipeline) generalize(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		qi := make(map[string]string, len(r.QuasiIdentifiers))
		for attr, val := range r.QuasiIdentifiers {
			if g, ok := p.generalizers[attr]; ok {
				val = g(val)
			}
			qi[attr] = val
		}
		out[i] = Record{QuasiIdentifiers: qi, Sensitive: r.Sensitive}
	}
	return out
}

func groupByQuasiIdentifiers(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		key := groupKey(r.QuasiIdentifiers)
		groups[key] = append(groups[key], r)
	}
	return groups
}

// groupKey builds a stable key from the quasi-identifier tuple. Attribute
// names are sorted so map iteration order cannot split a group.
func groupKey(qi map[string]string) string {
	attrs := make([]string, 0, len(qi))
	for attr := range qi {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	var b strings.Builder
	for _, attr := range attrs {
		b.WriteString(attr)
		b.WriteByte('=')
		b.WriteString(qi[attr])
		b.WriteByte('\x1f')
	}
	return b.String()
}

func distinctSensitive(group []Record) int {
	seen := make(map[string]bool, len(group))
	for _, r := range group {
		seen[r.Sensitive] = true
	}
	return len(seen)
}
