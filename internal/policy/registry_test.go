package policy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacygate/pkg/domain"
	dErrors "privacygate/pkg/domain-errors"
)

const samplePolicies = `
policies:
  - id: pol-traveler-location
    data_category: traveler_location
    privacy_level: critical
    required_techniques: [differential_privacy, homomorphic_encryption]
    retention: 2160h
    access_tags: [analytics, compliance]
  - id: pol-booking-history
    data_category: booking_history
    privacy_level: medium
    required_techniques: [anonymization]
    retention: 8760h
    anonymization_required: true
`

func allTechniques() []Technique {
	return []Technique{TechniqueNoise, TechniqueEncryption, TechniqueAnonymization}
}

func TestRegistryLoad(t *testing.T) {
	t.Run("loads valid policies", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		require.NoError(t, r.Load([]byte(samplePolicies)))

		p, err := r.Lookup(domain.DataCategory("traveler_location"))
		require.NoError(t, err)
		assert.Equal(t, "pol-traveler-location", p.ID)
		assert.Equal(t, LevelCritical, p.Level)
		assert.True(t, p.Requires(TechniqueNoise))
		assert.True(t, p.Requires(TechniqueEncryption))
		assert.False(t, p.Requires(TechniqueAnonymization))
		assert.Equal(t, 90*24*time.Hour, p.Retention)
	})

	t.Run("anonymization technique implies the required flag", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		require.NoError(t, r.Load([]byte(samplePolicies)))

		p, err := r.Lookup(domain.DataCategory("booking_history"))
		require.NoError(t, err)
		assert.True(t, p.AnonymizationRequired)
	})

	t.Run("unknown technique fails closed", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		err := r.Load([]byte(`
policies:
  - id: pol-x
    data_category: x
    privacy_level: low
    required_techniques: [quantum_blur]
    retention: 24h
`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("technique without a registered mechanism fails closed", func(t *testing.T) {
		r := NewRegistry([]Technique{TechniqueNoise})
		err := r.Load([]byte(`
policies:
  - id: pol-x
    data_category: x
    privacy_level: low
    required_techniques: [homomorphic_encryption]
    retention: 24h
`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("duplicate category rejected", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		err := r.Load([]byte(`
policies:
  - id: a
    data_category: same
    privacy_level: low
    required_techniques: [differential_privacy]
    retention: 24h
  - id: b
    data_category: same
    privacy_level: high
    required_techniques: [differential_privacy]
    retention: 24h
`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("invalid retention rejected", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		err := r.Load([]byte(`
policies:
  - id: a
    data_category: x
    privacy_level: low
    required_techniques: [differential_privacy]
    retention: never
`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("failed reload keeps previous snapshot", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		require.NoError(t, r.Load([]byte(samplePolicies)))
		require.Error(t, r.Load([]byte(`policies: []`)))

		_, err := r.Lookup(domain.DataCategory("traveler_location"))
		assert.NoError(t, err, "previous snapshot must survive a failed reload")
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Run("unknown category is NotFound, never a default", func(t *testing.T) {
		r := NewRegistry(allTechniques())
		require.NoError(t, r.Load([]byte(samplePolicies)))

		_, err := r.Lookup(domain.DataCategory("unconfigured"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestRegistryConcurrentReload(t *testing.T) {
	r := NewRegistry(allTechniques())
	require.NoError(t, r.Load([]byte(samplePolicies)))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers must always observe a complete snapshot.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p, err := r.Lookup(domain.DataCategory("traveler_location"))
				if err == nil {
					assert.True(t, p.Requires(TechniqueNoise))
					assert.True(t, p.Requires(TechniqueEncryption))
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		require.NoError(t, r.Load([]byte(samplePolicies)))
	}
	close(stop)
	wg.Wait()
}
