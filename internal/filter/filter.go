// Package filter evaluates conjunctions of predicates over entity collections.
//
// A Filter is an ordered list of conditions. An entity passes when every
// condition returns true, so a filter with no conditions passes everything.
// Filters are values: And returns a new filter and there is no way to remove a
// condition once added. Apply is stable and never reorders its input.
package filter

// Condition is a pure predicate over one entity.
type Condition[T any] func(T) bool

// Filter is an immutable conjunction of conditions.
type Filter[T any] struct {
	conds []Condition[T]
}

// New builds a filter from conds. Nil conditions are ignored.
func New[T any](conds ...Condition[T]) Filter[T] {
	return Filter[T]{}.And(conds...)
}

// And returns a filter holding f's conditions followed by conds. f is left
// untouched.
func (f Filter[T]) And(conds ...Condition[T]) Filter[T] {
	out := make([]Condition[T], 0, len(f.conds)+len(conds))
	out = append(out, f.conds...)
	for _, c := range conds {
		if c != nil {
			out = append(out, c)
		}
	}
	return Filter[T]{conds: out}
}

// Len returns the number of conditions.
func (f Filter[T]) Len() int { return len(f.conds) }

// Match reports whether item passes every condition. Evaluation stops at the
// first failing condition.
func (f Filter[T]) Match(item T) bool {
	for _, c := range f.conds {
		if !c(item) {
			return false
		}
	}
	return true
}

// Apply returns the items that pass, in input order. The result is always a
// new slice.
func (f Filter[T]) Apply(items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

// ApplyMap returns a new map holding the entries whose value passes f.
func ApplyMap[K comparable, T any](f Filter[T], items map[K]T) map[K]T {
	out := make(map[K]T, len(items))
	for k, v := range items {
		if f.Match(v) {
			out[k] = v
		}
	}
	return out
}

// On lifts a condition over U to one over T using get to project T onto U.
func On[T, U any](get func(T) U, c Condition[U]) Condition[T] {
	if c == nil {
		return nil
	}
	return func(item T) bool { return c(get(item)) }
}
