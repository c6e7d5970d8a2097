package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the rule set. Rules keep their insertion order so that
// priority ties resolve to the rule added first.
type Store struct {
	mu    sync.RWMutex
	rules []*Rule
	index map[string]*Rule
	now   func() time.Time
}

// NewStore creates a store seeded with the given rules.
func NewStore(seed ...Rule) (*Store, error) {
	s := &Store{
		index: make(map[string]*Rule),
		now:   time.Now,
	}
	for _, r := range seed {
		if _, err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates and inserts a rule. A missing ID is generated.
func (s *Store) Add(r Rule) (Rule, error) {
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[r.ID]; ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	stored := cloneRule(&r)
	s.rules = append(s.rules, stored)
	s.index[stored.ID] = stored
	return *cloneRule(stored), nil
}

// Update replaces the definition of an existing rule. Match statistics and
// the creation time are preserved.
func (s *Store) Update(id string, r Rule) (Rule, error) {
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.index[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	r.ID = id
	r.MatchCount = existing.MatchCount
	r.LastMatched = existing.LastMatched
	r.CreatedAt = existing.CreatedAt
	*existing = *cloneRule(&r)
	return *cloneRule(existing), nil
}

// Delete removes a rule.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	delete(s.index, id)
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of a rule.
func (s *Store) Get(id string) (Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.index[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return *cloneRule(r), nil
}

// List returns copies of all rules ordered by priority, highest first.
func (s *Store) List() []Rule {
	return s.sorted(false)
}

// Active returns copies of the active rules in evaluation order.
func (s *Store) Active() []Rule {
	return s.sorted(true)
}

func (s *Store) sorted(activeOnly bool) []Rule {
	s.mu.RLock()
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, *cloneRule(r))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// recordMatch bumps the match statistics of a rule.
func (s *Store) recordMatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.index[id]; ok {
		r.MatchCount++
		r.LastMatched = s.now()
	}
}

// Stats summarizes rule usage.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalRules: len(s.rules),
		ByRule:     make(map[string]int, len(s.rules)),
	}
	top := 0
	for _, r := range s.rules {
		if r.Active {
			st.ActiveRules++
		}
		st.TotalMatches += r.MatchCount
		st.ByRule[r.Name] = r.MatchCount
		if r.MatchCount > top {
			top = r.MatchCount
			st.TopRule = r.Name
		}
	}
	return st
}

func cloneRule(r *Rule) *Rule {
	c := *r
	c.Criteria = Criteria{
		From:            append([]string(nil), r.Criteria.From...),
		FromDomain:      append([]string(nil), r.Criteria.FromDomain...),
		Subject:         append([]string(nil), r.Criteria.Subject...),
		BodyKeywords:    append([]string(nil), r.Criteria.BodyKeywords...),
		ExcludeKeywords: append([]string(nil), r.Criteria.ExcludeKeywords...),
	}
	return &c
}
