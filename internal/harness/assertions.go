package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// checkExpect compares a step's trace event with its expectation and
// returns one message per mismatch.
func checkExpect(step *Step, ev TraceEvent) []string {
	exp := step.Expect
	failed := ev.Failed()

	if exp == nil {
		if failed {
			return []string{fmt.Sprintf("unexpected error %s", ev.Outcome)}
		}
		return nil
	}
	if exp.Error != "" {
		if ev.Outcome != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, ev.Outcome)}
		}
		return nil
	}
	if failed {
		return []string{fmt.Sprintf("unexpected error %s", ev.Outcome)}
	}

	var msgs []string
	if exp.Null && ev.Outcome != "null" {
		msgs = append(msgs, fmt.Sprintf("expected null, got %s", ev.Record))
	}
	if exp.Record != nil {
		if ev.Outcome != "found" {
			msgs = append(msgs, fmt.Sprintf("expected a record, got %s", ev.Outcome))
		} else {
			msgs = append(msgs, matchRecord(ev.Record, exp.Record)...)
		}
	}
	if exp.Lookup != nil && !slices.Equal(exp.Lookup, ev.Lookup) {
		msgs = append(msgs, fmt.Sprintf("expected %v, got %v", exp.Lookup, ev.Lookup))
	}
	return msgs
}

// matchRecord checks that every expected element is present in got with an
// equal value. Both sides pass through encoding/json so that numbers
// compare by value.
func matchRecord(got json.RawMessage, expected map[string]any) []string {
	var actual map[string]any
	if err := json.Unmarshal(got, &actual); err != nil {
		return []string{fmt.Sprintf("loaded record is not valid JSON: %v", err)}
	}
	want, err := normalize(expected)
	if err != nil {
		return []string{fmt.Sprintf("expected record: %v", err)}
	}

	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var msgs []string
	for _, name := range names {
		a, ok := actual[name]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("record.%s: missing, want %v", name, want[name]))
			continue
		}
		if !reflect.DeepEqual(a, want[name]) {
			msgs = append(msgs, fmt.Sprintf("record.%s: got %v, want %v", name, a, want[name]))
		}
	}
	return msgs
}

func normalize(m map[string]any) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateAssertions checks assertions against a completed run. minted
// lists version labels in mint order.
func EvaluateAssertions(result *Result, assertions []Assertion, minted []string) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(minted, a)
		case AssertVersions:
			err = assertVersions(result.Versions, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return msgs
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Op == a.Op {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("expected %d %s steps, got %d", a.Count, a.Op, n)
	}
	return nil
}

// assertTraceOrder checks that ids were minted in the listed order.
// Intervening ids are allowed.
func assertTraceOrder(minted []string, a Assertion) error {
	pos := -1
	for _, label := range a.IDs {
		i := slices.Index(minted, label)
		if i < 0 {
			return fmt.Errorf("%s was never minted", label)
		}
		if i < pos {
			return fmt.Errorf("%s was minted before %s", label, minted[pos])
		}
		pos = i
	}
	return nil
}

func assertVersions(versions map[string]int, a Assertion) error {
	n, ok := versions[a.RecordType]
	if !ok {
		return fmt.Errorf("unknown record type %q", a.RecordType)
	}
	if n != a.Count {
		return fmt.Errorf("expected %d stored %s versions, got %d", a.Count, a.RecordType, n)
	}
	return nil
}
