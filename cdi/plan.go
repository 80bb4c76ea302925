package cdi

import (
	"log/slog"

	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// Plan holds per-variable facts computed once per conversion: sentinel
// ranges and the top concepts of each concept scheme. Emitters consult it to
// decide which optional nodes and edges exist.
type Plan struct {
	meta            *dataset.Metadata
	logger          *slog.Logger
	sentinels       map[string]dataset.Ranges
	substantiveTops map[string][]Ref
	sentinelTops    map[string][]Ref
}

// NewPlan computes the plan for meta. A nil logger uses slog.Default.
func NewPlan(meta *dataset.Metadata, logger *slog.Logger) *Plan {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plan{
		meta:            meta,
		logger:          logger,
		sentinels:       make(map[string]dataset.Ranges),
		substantiveTops: make(map[string][]Ref),
		sentinelTops:    make(map[string][]Ref),
	}
	for _, name := range meta.SentinelVars() {
		p.sentinels[name] = meta.SentinelRanges(name)
	}
	for _, name := range meta.ColumnNames {
		seen := make(map[string]bool)
		for _, vl := range meta.ValueLabels[name] {
			ref := Ref{ID: ConceptID(name, vl.Value), Type: vocab.ClassConcept}
			if seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			if p.IsSentinel(name, vl.Value) {
				p.sentinelTops[name] = append(p.sentinelTops[name], ref)
			} else {
				p.substantiveTops[name] = append(p.substantiveTops[name], ref)
			}
		}
	}
	return p
}

// Metadata returns the metadata the plan was built from.
func (p *Plan) Metadata() *dataset.Metadata { return p.meta }

// HasSentinel reports whether a variable has sentinel definitions.
func (p *Plan) HasSentinel(name string) bool {
	_, ok := p.sentinels[name]
	return ok
}

// HasSubstantiveScheme reports whether the substantive concept scheme of a
// variable is emitted.
func (p *Plan) HasSubstantiveScheme(name string) bool {
	return len(p.substantiveTops[name]) > 0
}

// HasSentinelScheme reports whether the sentinel concept scheme of a
// variable is emitted.
func (p *Plan) HasSentinelScheme(name string) bool {
	return p.HasSentinel(name) && len(p.sentinelTops[name]) > 0
}

// IsSentinel reports whether v is a sentinel value of a variable. Values
// that cannot be compared with the variable's ranges are substantive.
func (p *Plan) IsSentinel(name string, v dataset.Value) bool {
	rs, ok := p.sentinels[name]
	if !ok {
		return false
	}
	sentinel, comparable := rs.Classify(v)
	if !comparable {
		p.logger.Debug("missing-value comparison skipped",
			slog.String("variable", name),
			slog.String("value", v.String()),
			slog.String("kind", v.Kind().String()))
	}
	return sentinel
}

// ValueDomain returns the value domain a cell of a variable is drawn from.
func (p *Plan) ValueDomain(name string, v dataset.Value) Ref {
	if p.IsSentinel(name, v) {
		return Ref{ID: VarID(PrefixSentinelValueDomain, name), Type: vocab.ClassSentinelValueDomain}
	}
	return Ref{ID: VarID(PrefixSubstantiveValueDomain, name), Type: vocab.ClassSubstantiveValueDomain}
}
