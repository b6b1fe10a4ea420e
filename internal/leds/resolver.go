package leds

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseError reports a malformed LED expression. A failed resolve never
// yields a partial target set.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return "invalid LED expression: " + e.Reason
	}
	return fmt.Sprintf("invalid LED expression: %s: %q", e.Reason, e.Token)
}

// TargetSet is a set of resolved LED ids. Duplicate ids collapse.
type TargetSet map[ID]struct{}

func (ts TargetSet) Add(id ID) {
	ts[id] = struct{}{}
}

func (ts TargetSet) Contains(id ID) bool {
	_, ok := ts[id]
	return ok
}

// IDs returns the members in deterministic order: left before right,
// then layout order. Sequential transmission relies on this ordering.
func (ts TargetSet) IDs() []ID {
	ids := make([]ID, 0, len(ts))
	for id := range ts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Side != ids[j].Side {
			return ids[i].Side < ids[j].Side
		}
		return ids[i].Index < ids[j].Index
	})
	return ids
}

// Resolve expands an LED expression against a side selector into the set
// of physical LED ids it names. The grammar is a comma-separated list of
// single names ("LED3", "LED9B"), group aliases ("LED9", "LED10") and
// inclusive ranges ("LED1/LED5"). Pure; deterministic; no partial output.
func Resolve(expression string, side Side) (TargetSet, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return nil, &ParseError{Reason: "empty expression"}
	}

	var indices []uint8
	for _, raw := range strings.Split(expr, ",") {
		tok := strings.ToUpper(strings.TrimSpace(raw))
		if tok == "" {
			return nil, &ParseError{Token: raw, Reason: "empty token"}
		}

		if strings.Contains(tok, "/") {
			members, err := expandRange(tok)
			if err != nil {
				return nil, err
			}
			indices = append(indices, members...)
			continue
		}

		if members, ok := groups[tok]; ok {
			indices = append(indices, members...)
			continue
		}
		idx, ok := nameIndex[tok]
		if !ok {
			return nil, &ParseError{Token: tok, Reason: "unknown LED name"}
		}
		indices = append(indices, idx)
	}

	ts := make(TargetSet, len(indices)*2)
	for _, idx := range indices {
		switch side {
		case Left, Right:
			ts.Add(ID{Side: side, Index: idx})
		case Both:
			ts.Add(ID{Side: Left, Index: idx})
			ts.Add(ID{Side: Right, Index: idx})
		default:
			return nil, &ParseError{Token: side.String(), Reason: "unknown side"}
		}
	}
	return ts, nil
}

// expandRange expands "LEDk/LEDm" into the physical indices of LEDk
// through LEDm inclusive, with group aliases pre-expanded. Endpoints
// must be plain numeric names and must be in order.
func expandRange(tok string) ([]uint8, error) {
	parts := strings.Split(tok, "/")
	if len(parts) != 2 {
		return nil, &ParseError{Token: tok, Reason: "range needs exactly two endpoints"}
	}
	start, err := rangeEndpoint(tok, parts[0])
	if err != nil {
		return nil, err
	}
	end, err := rangeEndpoint(tok, parts[1])
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, &ParseError{Token: tok, Reason: "range start after end"}
	}

	var members []uint8
	for n := start; n <= end; n++ {
		m, ok := logicalMembers(n)
		if !ok {
			return nil, &ParseError{Token: tok, Reason: "range position out of layout"}
		}
		members = append(members, m...)
	}
	return members, nil
}

func rangeEndpoint(tok, part string) (int, error) {
	name := strings.TrimSpace(part)
	if !strings.HasPrefix(name, "LED") {
		return 0, &ParseError{Token: tok, Reason: "range endpoint is not a LED name"}
	}
	n, err := strconv.Atoi(name[3:])
	if err != nil {
		return 0, &ParseError{Token: tok, Reason: "range endpoint is not numeric"}
	}
	if _, ok := logicalMembers(n); !ok {
		return 0, &ParseError{Token: tok, Reason: "unknown LED name"}
	}
	return n, nil
}
