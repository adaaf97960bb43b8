package model

// WarningSet collects soft, recoverable problems. Each distinct message is
// kept once, in the order first seen.
type WarningSet struct {
	messages []string
	seen     map[string]struct{}
}

// Add records a warning message.
func (w *WarningSet) Add(msg string) {
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.messages = append(w.messages, msg)
}

// Merge adds every warning of other.
func (w *WarningSet) Merge(other WarningSet) {
	for _, m := range other.messages {
		w.Add(m)
	}
}

// Messages returns a copy of the recorded warnings.
func (w WarningSet) Messages() []string {
	return append([]string(nil), w.messages...)
}

// Len returns the number of distinct warnings.
func (w WarningSet) Len() int { return len(w.messages) }
