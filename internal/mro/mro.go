// Package mro computes C3 linearizations over the class table of one
// analysis run.
package mro

import (
	"errors"
	"fmt"
)

// ErrInconsistent reports a hierarchy with no valid C3 linearization.
var ErrInconsistent = errors.New("inconsistent hierarchy")

// Linearize computes the C3 linearization of identity. bases maps each known
// class identity to its resolved direct bases; identities absent from the
// map are external and linearize to themselves. Cyclic hierarchies and
// unmergeable orders return ErrInconsistent.
func Linearize(identity string, bases map[string][]string) ([]string, error) {
	memo := make(map[string][]string)
	visiting := make(map[string]bool)
	return linearize(identity, bases, memo, visiting)
}

func linearize(id string, bases map[string][]string, memo map[string][]string, visiting map[string]bool) ([]string, error) {
	if cached, ok := memo[id]; ok {
		return cached, nil
	}
	direct, known := bases[id]
	if !known {
		return []string{id}, nil
	}
	if visiting[id] {
		return nil, fmt.Errorf("%w: cycle through %s", ErrInconsistent, id)
	}
	visiting[id] = true
	defer delete(visiting, id)

	sequences := make([][]string, 0, len(direct)+1)
	for _, base := range direct {
		seq, err := linearize(base, bases, memo, visiting)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	if len(direct) > 0 {
		sequences = append(sequences, append([]string(nil), direct...))
	}

	merged, err := merge(sequences)
	if err != nil {
		return nil, fmt.Errorf("%w: merging bases of %s", ErrInconsistent, id)
	}

	result := append([]string{id}, merged...)
	memo[id] = result
	return result, nil
}

// merge implements the C3 merge: repeatedly take the first head that
// appears in no sequence's tail.
func merge(sequences [][]string) ([]string, error) {
	work := make([][]string, 0, len(sequences))
	for _, s := range sequences {
		if len(s) > 0 {
			work = append(work, append([]string(nil), s...))
		}
	}

	var out []string
	for len(work) > 0 {
		var head string
		found := false
		for _, seq := range work {
			candidate := seq[0]
			if inAnyTail(candidate, work) {
				continue
			}
			head = candidate
			found = true
			break
		}
		if !found {
			return nil, ErrInconsistent
		}

		out = append(out, head)
		next := work[:0]
		for _, seq := range work {
			if seq[0] == head {
				seq = seq[1:]
			}
			if len(seq) > 0 {
				next = append(next, seq)
			}
		}
		work = next
	}
	return out, nil
}

func inAnyTail(candidate string, sequences [][]string) bool {
	for _, seq := range sequences {
		for _, s := range seq[1:] {
			if s == candidate {
				return true
			}
		}
	}
	return false
}

// Fallback returns a depth-first, keep-first-occurrence ancestor order for
// hierarchies C3 rejects. The result still has identity first and no
// duplicates.
func Fallback(identity string, bases map[string][]string) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, base := range bases[id] {
			walk(base)
		}
	}
	walk(identity)
	return out
}
