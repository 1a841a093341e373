// Package predicate implements the filter language: a small tree of
// node variants parsed from a filter document and evaluated as a pure
// function against a record. No side effects, no I/O — safe to
// evaluate in parallel across records.
package predicate

import "github.com/hitesh-reddy-k/cloude-storage/pkg/record"

// Kind enumerates the node variants.
type Kind int

const (
	MatchAll Kind = iota
	AlwaysFalse
	Invalid
	And
	Or
	Eq
	Gt
	Lt
)

// Node is one predicate tree node. Connective nodes (And, Or) carry
// Children; leaf nodes (Eq, Gt, Lt) carry Field and Value.
type Node struct {
	Kind     Kind
	Children []Node
	Field    string
	Value    any
}

// Parse builds a Node tree from a filter document. An empty mapping
// matches everything; $or/$and take a sequence of subfilters; a
// single {field: scalar} entry is equality and {field: {"$gt": v}} /
// {"$lt": v} are comparisons. Any other shape parses to Invalid,
// which Eval always treats as false.
func Parse(filter map[string]any) Node {
	if len(filter) == 0 {
		return Node{Kind: MatchAll}
	}

	if v, ok := filter["$or"]; ok && len(filter) == 1 {
		seq, ok := v.([]any)
		if !ok {
			return Node{Kind: Invalid}
		}
		return parseOr(seq)
	}

	if v, ok := filter["$and"]; ok && len(filter) == 1 {
		seq, ok := v.([]any)
		if !ok {
			return Node{Kind: Invalid}
		}
		return parseAnd(seq)
	}

	if len(filter) == 1 {
		for k, v := range filter {
			return parseSingle(k, v)
		}
	}

	return Node{Kind: Invalid}
}

func parseOr(seq []any) Node {
	var children []Node
	for _, elem := range seq {
		m, ok := elem.(map[string]any)
		if !ok {
			children = append(children, Node{Kind: Invalid})
			continue
		}
		if len(m) == 0 {
			// An empty-mapping child would match everything and
			// trivialize the disjunction, so it is dropped.
			continue
		}
		children = append(children, Parse(m))
	}
	if len(children) == 0 {
		return Node{Kind: AlwaysFalse}
	}
	return Node{Kind: Or, Children: children}
}

func parseAnd(seq []any) Node {
	var children []Node
	for _, elem := range seq {
		m, ok := elem.(map[string]any)
		if !ok {
			children = append(children, Node{Kind: Invalid})
			continue
		}
		children = append(children, Parse(m))
	}
	return Node{Kind: And, Children: children}
}

func parseSingle(k string, v any) Node {
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		if gtVal, ok := m["$gt"]; ok {
			return Node{Kind: Gt, Field: k, Value: gtVal}
		}
		if ltVal, ok := m["$lt"]; ok {
			return Node{Kind: Lt, Field: k, Value: ltVal}
		}
		return Node{Kind: Invalid}
	}
	if isScalar(v) {
		return Node{Kind: Eq, Field: k, Value: v}
	}
	return Node{Kind: Invalid}
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

// Eval evaluates n against d. It is a pure function: no I/O, no
// mutation, deterministic for a given (n, d) pair.
func Eval(n Node, d record.Record) bool {
	switch n.Kind {
	case MatchAll:
		return true
	case AlwaysFalse, Invalid:
		return false
	case And:
		for _, c := range n.Children {
			if !Eval(c, d) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range n.Children {
			if Eval(c, d) {
				return true
			}
		}
		return false
	case Eq:
		v, ok := d[n.Field]
		return ok && record.Equal(v, n.Value)
	case Gt:
		v, ok := d[n.Field]
		if !ok {
			return false
		}
		cmp, ok := record.Compare(v, n.Value)
		return ok && cmp > 0
	case Lt:
		v, ok := d[n.Field]
		if !ok {
			return false
		}
		cmp, ok := record.Compare(v, n.Value)
		return ok && cmp < 0
	default:
		return false
	}
}

// Matches parses filter and evaluates it against d in one step — the
// shape dispatch operations actually call.
func Matches(filter map[string]any, d record.Record) bool {
	return Eval(Parse(filter), d)
}
