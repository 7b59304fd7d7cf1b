package logs

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Entry is one message kept by a Pane.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

type paneStore struct {
	mu      sync.Mutex
	entries []Entry
}

// Pane is a slog.Handler that keeps records in memory, the way Leo's log
// pane shows messages colored by severity.
type Pane struct {
	store *paneStore
	level slog.Leveler
	attrs []slog.Attr
	group string
}

var _ slog.Handler = (*Pane)(nil)

// NewPane returns an empty pane keeping records at or above level.
func NewPane(level slog.Leveler) *Pane {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Pane{store: &paneStore{}, level: level}
}

func (p *Pane) Enabled(_ context.Context, l slog.Level) bool {
	return l >= p.level.Level()
}

func (p *Pane) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: make(map[string]string)}
	add := func(a slog.Attr) bool {
		key := a.Key
		if p.group != "" {
			key = p.group + "." + key
		}
		e.Attrs[key] = a.Value.String()
		return true
	}
	for _, a := range p.attrs {
		add(a)
	}
	r.Attrs(add)

	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	p.store.entries = append(p.store.entries, e)
	return nil
}

func (p *Pane) WithAttrs(attrs []slog.Attr) slog.Handler {
	q := *p
	q.attrs = append(slices.Clip(p.attrs), attrs...)
	return &q
}

func (p *Pane) WithGroup(name string) slog.Handler {
	q := *p
	if q.group != "" {
		name = q.group + "." + name
	}
	q.group = name
	return &q
}

// Entries returns a copy of everything logged so far.
func (p *Pane) Entries() []Entry {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	return slices.Clone(p.store.entries)
}

// Messages returns the messages logged at exactly level.
func (p *Pane) Messages(level slog.Level) []string {
	var out []string
	for _, e := range p.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Count returns the number of entries at or above level.
func (p *Pane) Count(level slog.Level) int {
	n := 0
	for _, e := range p.Entries() {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// Reset drops all entries.
func (p *Pane) Reset() {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	p.store.entries = nil
}
