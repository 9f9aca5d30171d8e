// Package policy maps data categories to the privacy protections they
// require. The registry is read-mostly: lookups never block and a reload
// swaps in a complete new snapshot atomically.
package policy

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// Registry resolves data categories to immutable privacy policies.
//
// There is deliberately no default policy: a category without configuration
// must fail the request rather than be treated as unprotected.
type Registry struct {
	snapshot atomic.Pointer[map[domain.DataCategory]*PrivacyPolicy]

	// implemented lists the techniques the deployment has wired mechanisms
	// for. Loading a policy that requires anything else fails closed.
	implemented map[Technique]bool
}

// NewRegistry creates a registry that accepts only policies whose required
// techniques are all in implemented.
func NewRegistry(implemented []Technique) *Registry {
	impl := make(map[Technique]bool, len(implemented))
	for _, t := range implemented {
		impl[t] = true
	}
	r := &Registry{implemented: impl}
	empty := map[domain.DataCategory]*PrivacyPolicy{}
	r.snapshot.Store(&empty)
	return r
}

// policyFile is the on-disk YAML shape.
type policyFile struct {
	Policies []policyEntry `yaml:"policies"`
}

type policyEntry struct {
	ID                    string   `yaml:"id"`
	DataCategory          string   `yaml:"data_category"`
	Level                 string   `yaml:"privacy_level"`
	Techniques            []string `yaml:"required_techniques"`
	Retention             string   `yaml:"retention"`
	AccessTags            []string `yaml:"access_tags"`
	AnonymizationRequired bool     `yaml:"anonymization_required"`
}

// LoadFile reads and atomically installs the policy set from a YAML file.
// Any invalid entry rejects the whole file; the previous snapshot stays
// installed, so a bad reload never leaves readers with partial state.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration, "read policy file")
	}
	return r.Load(raw)
}

// Load parses and atomically installs a policy set from YAML bytes.
func (r *Registry) Load(raw []byte) error {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return dErrors.Wrap(err, dErrors.CodeConfiguration, "parse policy file")
	}
	if len(file.Policies) == 0 {
		return dErrors.New(dErrors.CodeConfiguration, "policy file defines no policies")
	}

	next := make(map[domain.DataCategory]*PrivacyPolicy, len(file.Policies))
	for i, entry := range file.Policies {
		p, err := r.buildPolicy(entry)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("policy entry %d", i))
		}
		if _, dup := next[p.DataCategory]; dup {
			return dErrors.Newf(dErrors.CodeConfiguration, "duplicate policy for category %q", p.DataCategory)
		}
		next[p.DataCategory] = p
	}

	r.snapshot.Store(&next)
	return nil
}

func (r *Registry) buildPolicy(entry policyEntry) (*PrivacyPolicy, error) {
	if entry.ID == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "policy id is required")
	}
	category, err := domain.ParseDataCategory(entry.DataCategory)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid data_category")
	}
	level, err := ParseLevel(entry.Level)
	if err != nil {
		return nil, err
	}

	techniques := make(map[Technique]bool, len(entry.Techniques))
	for _, name := range entry.Techniques {
		t, err := ParseTechnique(name)
		if err != nil {
			return nil, err
		}
		if !r.implemented[t] {
			return nil, dErrors.Newf(dErrors.CodeConfiguration,
				"technique %q required by category %q has no registered mechanism", t, category)
		}
		techniques[t] = true
	}

	retention, err := time.ParseDuration(entry.Retention)
	if err != nil || retention <= 0 {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "invalid retention %q", entry.Retention)
	}

	tags := make(map[string]bool, len(entry.AccessTags))
	for _, tag := range entry.AccessTags {
		tags[tag] = true
	}

	anonRequired := entry.AnonymizationRequired || techniques[TechniqueAnonymization]

	return &PrivacyPolicy{
		ID:                    entry.ID,
		DataCategory:          category,
		Level:                 level,
		Techniques:            techniques,
		Retention:             retention,
		AccessTags:            tags,
		AnonymizationRequired: anonRequired,
	}, nil
}

// Lookup resolves the policy for a data category. Returns CodeNotFound when
// the category has no policy; callers must treat that as fatal for the
// request, never as "no protection needed".
func (r *Registry) Lookup(category domain.DataCategory) (*PrivacyPolicy, error) {
	snap := *r.snapshot.Load()
	p, ok := snap[category]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no privacy policy for category %q", category)
	}
	return p, nil
}

// Categories returns the categories with a registered policy.
func (r *Registry) Categories() []domain.DataCategory {
	snap := *r.snapshot.Load()
	out := make([]domain.DataCategory, 0, len(snap))
	for c := range snap {
		out = append(out, c)
	}
	return out
}
