package budget

import (
	"time"

	"github.com/google/uuid"

	"privacygate/pkg/domain"
)

// Account tracks cumulative privacy loss for one data source inside the
// current allowance window. Stores enforce Consumed <= Allowance by
// construction: the only mutation path is the atomic reserve, which refuses
// any debit that would cross the allowance.
type Account struct {
	DataSourceID domain.DataSourceID
	Allowance    float64
	Consumed     float64
	WindowStart  time.Time
}

// Remaining returns the unspent allowance.
func (a *Account) Remaining() float64 {
	return a.Allowance - a.Consumed
}

// Reservation is the token returned by a successful reserve. It carries the
// spent epsilon for audit purposes; it is not a refundable credit.
type Reservation struct {
	ID           uuid.UUID
	DataSourceID domain.DataSourceID
	Epsilon      float64
	Remaining    float64
	GrantedAt    time.Time
}

// Status is the externally visible budget state of a data source.
type Status struct {
	DataSourceID domain.DataSourceID `json:"data_source_id"`
	Allowance    float64             `json:"allowance"`
	Consumed     float64             `json:"consumed"`
	Remaining    float64             `json:"remaining"`
}

// Config sets per-source allowances. Sources without an explicit entry get
// DefaultAllowance.
type Config struct {
	DefaultAllowance float64
	Allowances       map[domain.DataSourceID]float64
	// Window is the allowance cadence; consumed budget resets once per
	// window via the sweeper.
	Window time.Duration
}

// DefaultConfig mirrors the production defaults: a daily window with an
// epsilon allowance of 10 per source.
func DefaultConfig() Config {
	return Config{
		DefaultAllowance: 10.0,
		Window:           24 * time.Hour,
	}
}

// AllowanceFor resolves the allowance for a data source.
func (c Config) AllowanceFor(src domain.DataSourceID) float64 {
	if a, ok := c.Allowances[src]; ok {
		return a
	}
	return c.DefaultAllowance
}
