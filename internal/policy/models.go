package policy

import (
	"time"

	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

// Technique names a privacy mechanism a policy can require.
type Technique string

const (
	TechniqueNoise         Technique = "differential_privacy"
	TechniqueEncryption    Technique = "homomorphic_encryption"
	TechniqueAnonymization Technique = "anonymization"
)

var validTechniques = map[Technique]bool{
	TechniqueNoise:         true,
	TechniqueEncryption:    true,
	TechniqueAnonymization: true,
}

// ParseTechnique constructs a Technique from configuration input.
func ParseTechnique(s string) (Technique, error) {
	t := Technique(s)
	if !validTechniques[t] {
		return "", dErrors.Newf(dErrors.CodeConfiguration, "unknown privacy technique %q", s)
	}
	return t, nil
}

// Level ranks how sensitive a data category is.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var validLevels = map[Level]bool{
	LevelLow:      true,
	LevelMedium:   true,
	LevelHigh:     true,
	LevelCritical: true,
}

// ParseLevel constructs a Level from configuration input.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !validLevels[l] {
		return "", dErrors.Newf(dErrors.CodeConfiguration, "unknown privacy level %q", s)
	}
	return l, nil
}

// PrivacyPolicy binds a data category to the protections it must receive.
// Immutable after load; the registry hands out pointers to shared instances,
// so callers must never mutate one.
type PrivacyPolicy struct {
	ID                    string
	DataCategory          domain.DataCategory
	Level                 Level
	Techniques            map[Technique]bool
	Retention             time.Duration
	AccessTags            map[string]bool
	AnonymizationRequired bool
}

// Requires reports whether the policy mandates the given technique.
func (p *PrivacyPolicy) Requires(t Technique) bool {
	return p.Techniques[t]
}
