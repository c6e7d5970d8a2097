package classifier

import (
	"sort"
	"sync"
	"time"

	"github.com/teemow/todoagent/internal/email"
)

// DefaultHistorySize is the number of verdicts kept for statistics.
const DefaultHistorySize = 1000

type historyEntry struct {
	Sender     string
	Label      string
	Actionable bool
	Confidence float64
	At         time.Time
}

// history is a bounded ring of recent verdicts. The oldest entry is evicted
// once the ring is full.
type history struct {
	mu      sync.Mutex
	entries []historyEntry
	next    int
	full    bool
}

func newHistory(size int) *history {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &history{entries: make([]historyEntry, size)}
}

func (h *history) add(from string, v Verdict, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = historyEntry{
		Sender:     email.SenderAddress(from),
		Label:      v.SuggestedLabel,
		Actionable: v.IsActionable,
		Confidence: v.Confidence,
		At:         at,
	}
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// snapshot returns the entries oldest first.
func (h *history) snapshot() []historyEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]historyEntry(nil), h.entries[:h.next]...)
	}
	out := make([]historyEntry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

func (h *history) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]historyEntry, len(h.entries))
	h.next = 0
	h.full = false
}

// Stats summarizes classification history.
type Stats struct {
	TotalClassifications int            `json:"totalClassifications"`
	Actionable           int            `json:"actionable"`
	ByLabel              map[string]int `json:"byLabel"`
	AverageConfidence    float64        `json:"averageConfidence"`
}

func (h *history) stats() Stats {
	entries := h.snapshot()
	st := Stats{
		TotalClassifications: len(entries),
		ByLabel:              make(map[string]int),
	}
	var sum float64
	for _, e := range entries {
		if e.Actionable {
			st.Actionable++
		}
		st.ByLabel[e.Label]++
		sum += e.Confidence
	}
	if len(entries) > 0 {
		st.AverageConfidence = sum / float64(len(entries))
	}
	return st
}

// SenderPattern describes how a sender's emails have been classified. Label
// is the most frequent label for the sender.
type SenderPattern struct {
	Sender        string  `json:"sender"`
	Label         string  `json:"label"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avgConfidence"`
}

func (h *history) senderPatterns() []SenderPattern {
	type acc struct {
		count  int
		sum    float64
		labels map[string]int
	}
	bySender := make(map[string]*acc)
	var order []string
	for _, e := range h.snapshot() {
		if e.Sender == "" {
			continue
		}
		a, ok := bySender[e.Sender]
		if !ok {
			a = &acc{labels: make(map[string]int)}
			bySender[e.Sender] = a
			order = append(order, e.Sender)
		}
		a.count++
		a.sum += e.Confidence
		a.labels[e.Label]++
	}

	out := make([]SenderPattern, 0, len(order))
	for _, sender := range order {
		a := bySender[sender]
		label, best := "", 0
		for l, n := range a.labels {
			if n > best || (n == best && l < label) {
				label, best = l, n
			}
		}
		out = append(out, SenderPattern{
			Sender:        sender,
			Label:         label,
			Count:         a.count,
			AvgConfidence: a.sum / float64(a.count),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
