package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/todoagent/internal/email"
)

// Defaults for Config.
const (
	DefaultInterval      = 15 * time.Minute
	DefaultMaxEmails     = 20
	DefaultEmailDelay    = 2 * time.Second
	DefaultBaseQuery     = "in:inbox"
	DefaultCatchUpWindow = 24 * time.Hour
)

// Config controls batch runs.
type Config struct {
	Interval   time.Duration `json:"interval"`
	MaxEmails  int           `json:"maxEmails"`
	EmailDelay time.Duration `json:"emailDelay"`
	BaseQuery  string        `json:"baseQuery"`
	// CatchUpWindow restricts the first run after Start to recent mail.
	// Zero disables the restriction.
	CatchUpWindow time.Duration `json:"catchUpWindow"`
}

// DefaultConfig returns the default batch configuration.
func DefaultConfig() Config {
	return Config{
		Interval:      DefaultInterval,
		MaxEmails:     DefaultMaxEmails,
		EmailDelay:    DefaultEmailDelay,
		BaseQuery:     DefaultBaseQuery,
		CatchUpWindow: DefaultCatchUpWindow,
	}
}

// withDefaults fills unset fields. A negative EmailDelay or CatchUpWindow
// means none.
func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxEmails <= 0 {
		c.MaxEmails = DefaultMaxEmails
	}
	if c.EmailDelay < 0 {
		c.EmailDelay = 0
	}
	if c.CatchUpWindow < 0 {
		c.CatchUpWindow = 0
	}
	if strings.TrimSpace(c.BaseQuery) == "" {
		c.BaseQuery = DefaultBaseQuery
	}
	return c
}

// BuildQuery returns the Gmail search query of a batch run. Processed and
// skipped emails are always excluded. With catchUp set the query is limited
// to the window, rounded up to whole days since Gmail has no finer unit.
func BuildQuery(base string, catchUp bool, window time.Duration) string {
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseQuery
	}
	q := fmt.Sprintf("%s -label:%s -label:%s", strings.TrimSpace(base), email.LabelProcessed, email.LabelSkip)
	if catchUp && window > 0 {
		days := int((window + 24*time.Hour - 1) / (24 * time.Hour))
		q += fmt.Sprintf(" newer_than:%dd", days)
	}
	return q
}
