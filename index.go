package tristore

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

type (
	objectMap    = keyed[Fact]
	predicateMap = keyed[*objectMap]
)

// TripleIndex holds facts in a three-level subject → predicate → object
// index alongside a flat list in insertion order. Both structures are only
// mutated together, under the write lock, so every fact reachable through
// the index is also in the list and vice versa.
type TripleIndex struct {
	mu       sync.RWMutex
	subjects *keyed[*predicateMap]
	facts    []Fact
	logger   *slog.Logger
	observer Observer
}

// IndexOption configures a TripleIndex.
type IndexOption func(*TripleIndex)

// WithLogger sets the logger used for index events. The default discards.
func WithLogger(l *slog.Logger) IndexOption {
	return func(idx *TripleIndex) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithObserver registers an Observer for add/remove/reset events.
func WithObserver(o Observer) IndexOption {
	return func(idx *TripleIndex) {
		if o != nil {
			idx.observer = o
		}
	}
}

// NewTripleIndex returns an empty index.
func NewTripleIndex(opts ...IndexOption) *TripleIndex {
	idx := &TripleIndex{
		subjects: newKeyed[*predicateMap](),
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(idx)
	}
	return idx
}

// normalize upper-cases a subject or predicate key.
func normalize(term string) string {
	return strings.ToUpper(term)
}

// HasSubject reports whether subject is stored in the index.
func (idx *TripleIndex) HasSubject(subject string) bool {
	if subject == "" {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.subjects.has(normalize(subject))
}

// HasPredicate reports whether predicate is stored under subject.
func (idx *TripleIndex) HasPredicate(subject, predicate string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.lookupPredicate(normalize(subject), normalize(predicate))
	return ok
}

// HasObject reports whether the exact triple is stored. The object is
// compared case-sensitively.
func (idx *TripleIndex) HasObject(subject, predicate, object string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	objects, ok := idx.lookupPredicate(normalize(subject), normalize(predicate))
	return ok && objects.has(object)
}

// Subjects returns the normalized subject keys in insertion order.
func (idx *TripleIndex) Subjects() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.subjects.order()
}

// Predicates returns the normalized predicate keys stored for subject, or
// nil if the subject is unknown.
func (idx *TripleIndex) Predicates(subject string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	preds, ok := idx.subjects.get(normalize(subject))
	if !ok {
		return nil
	}
	return preds.order()
}

// Objects returns the object values stored for subject and predicate, or nil
// if either is unknown.
func (idx *TripleIndex) Objects(subject, predicate string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	objects, ok := idx.lookupPredicate(normalize(subject), normalize(predicate))
	if !ok {
		return nil
	}
	return objects.order()
}

// lookupPredicate returns the object map for already-normalized keys.
// Caller must hold the lock.
func (idx *TripleIndex) lookupPredicate(subject, predicate string) (*objectMap, bool) {
	if subject == "" || predicate == "" {
		return nil, false
	}
	preds, ok := idx.subjects.get(subject)
	if !ok {
		return nil, false
	}
	return preds.get(predicate)
}

// Add stores the triple and reports whether it was new. Subject and
// predicate are upper-cased; the object is stored as given. Adding a triple
// that already exists is a no-op. Empty subject or predicate returns
// ErrMissingTerm.
func (idx *TripleIndex) Add(subject, predicate, object string) (bool, error) {
	if subject == "" || predicate == "" {
		return false, ErrMissingTerm
	}
	subject, predicate = normalize(subject), normalize(predicate)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	preds, ok := idx.subjects.get(subject)
	if !ok {
		idx.logger.Debug("adding subject", "subject", subject)
		preds = newKeyed[*objectMap]()
		idx.subjects.set(subject, preds)
	}

	objects, ok := preds.get(predicate)
	if !ok {
		idx.logger.Debug("adding predicate", "subject", subject, "predicate", predicate)
		objects = newKeyed[Fact]()
		preds.set(predicate, objects)
	}

	f := Fact{Subject: subject, Predicate: predicate, Object: object}
	if objects.has(object) {
		idx.logger.Warn("duplicate fact", "subject", subject, "predicate", predicate, "object", object)
		idx.observer.FactDuplicate(f)
		return false, nil
	}

	idx.logger.Debug("adding fact", "subject", subject, "predicate", predicate, "object", object)
	objects.set(object, f)
	idx.facts = append(idx.facts, f)
	idx.observer.FactAdded(f)
	return true, nil
}

// Delete removes facts and returns how many were removed. The first
// applicable rule wins:
//
//   - predicate and object given and the triple exists: remove that fact;
//   - predicate given and stored for subject: remove every fact under it,
//     ignoring object;
//   - no predicate given and subject stored: remove every fact for the
//     subject.
//
// Anything else, including a predicate the subject does not have, is a
// no-op. Emptied predicate and subject entries are kept after an exact
// delete, so HasPredicate may stay true with no objects left.
func (idx *TripleIndex) Delete(subject, predicate, object string) int {
	subject, predicate = normalize(subject), normalize(predicate)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	preds, ok := idx.subjects.get(subject)
	if !ok || subject == "" {
		return 0
	}

	if predicate != "" {
		objects, ok := preds.get(predicate)
		if !ok {
			return 0
		}
		if object != "" {
			if f, ok := objects.get(object); ok {
				idx.removeFacts([]Fact{f})
				objects.remove(object)
				return 1
			}
		}
		removed := idx.removeObjects(objects)
		idx.logger.Debug("removing predicate", "subject", subject, "predicate", predicate)
		preds.remove(predicate)
		return removed
	}

	removed := 0
	for _, p := range preds.order() {
		objects, _ := preds.get(p)
		removed += idx.removeObjects(objects)
		idx.logger.Debug("removing predicate", "subject", subject, "predicate", p)
		preds.remove(p)
	}
	idx.logger.Debug("removing subject", "subject", subject)
	idx.subjects.remove(subject)
	return removed
}

// removeObjects drops every fact held by objects from the flat list and
// empties the map. Caller must hold the write lock.
func (idx *TripleIndex) removeObjects(objects *objectMap) int {
	doomed := make([]Fact, 0, objects.len())
	for _, o := range objects.order() {
		f, _ := objects.get(o)
		doomed = append(doomed, f)
		objects.remove(o)
	}
	idx.removeFacts(doomed)
	return len(doomed)
}

// removeFacts deletes the given facts from the flat list, preserving the
// order of the rest. Caller must hold the write lock.
func (idx *TripleIndex) removeFacts(doomed []Fact) {
	if len(doomed) == 0 {
		return
	}
	gone := make(map[Fact]struct{}, len(doomed))
	for _, f := range doomed {
		gone[f] = struct{}{}
	}
	idx.facts = slices.DeleteFunc(idx.facts, func(f Fact) bool {
		if _, ok := gone[f]; ok {
			idx.logger.Debug("removing fact", "subject", f.Subject, "predicate", f.Predicate, "object", f.Object)
			idx.observer.FactRemoved(f)
			return true
		}
		return false
	})
}

// Match returns every fact matching the pattern, where an empty argument
// matches any value. Results are ordered subject, then predicate, then
// object, each by insertion order. Unknown subjects or predicates yield no
// results.
func (idx *TripleIndex) Match(subject, predicate, object string) []Fact {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.match(normalize(subject), normalize(predicate), object)
}

// match walks the index for already-normalized keys. Caller must hold the lock.
func (idx *TripleIndex) match(subject, predicate, object string) []Fact {
	var out []Fact

	matchObjects := func(objects *objectMap) {
		if object != "" {
			if f, ok := objects.get(object); ok {
				out = append(out, f)
			}
			return
		}
		for _, o := range objects.keys {
			f, _ := objects.get(o)
			out = append(out, f)
		}
	}

	matchPredicates := func(preds *predicateMap) {
		if predicate != "" {
			if objects, ok := preds.get(predicate); ok {
				matchObjects(objects)
			}
			return
		}
		for _, p := range preds.keys {
			objects, _ := preds.get(p)
			matchObjects(objects)
		}
	}

	if subject != "" {
		if preds, ok := idx.subjects.get(subject); ok {
			matchPredicates(preds)
		}
	} else {
		for _, s := range idx.subjects.keys {
			preds, _ := idx.subjects.get(s)
			matchPredicates(preds)
		}
	}

	idx.logger.Debug("matched facts", "subject", subject, "predicate", predicate, "object", object, "count", len(out))
	return out
}

// NotMatch returns every stored fact whose subject does not appear in
// Match(subject, predicate, object), in insertion order. Exclusion is by
// subject: a fact is dropped when any matched fact shares its subject, even
// if the fact itself does not match the pattern.
func (idx *TripleIndex) NotMatch(subject, predicate, object string) []Fact {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	excluded := make(map[string]struct{})
	for _, f := range idx.match(normalize(subject), normalize(predicate), object) {
		excluded[f.Subject] = struct{}{}
	}

	var out []Fact
	for _, f := range idx.facts {
		if _, ok := excluded[f.Subject]; !ok {
			out = append(out, f)
		}
	}
	idx.logger.Debug("not-matched facts", "subject", subject, "predicate", predicate, "object", object, "count", len(out))
	return out
}

// Facts returns a copy of all stored facts in insertion order.
func (idx *TripleIndex) Facts() []Fact {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.facts)
}

// Len returns the number of stored facts.
func (idx *TripleIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.facts)
}

// Reset empties the index.
func (idx *TripleIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.subjects = newKeyed[*predicateMap]()
	idx.facts = nil
	idx.logger.Debug("index reset")
	idx.observer.IndexReset()
}

// Replace swaps in the contents of other, leaving other empty. Readers see
// either the old contents or the new ones, never a mix. Replacing an index
// with itself is a no-op.
func (idx *TripleIndex) Replace(other *TripleIndex) {
	if other == idx {
		return
	}
	other.mu.Lock()
	subjects, facts := other.subjects, other.facts
	other.subjects, other.facts = newKeyed[*predicateMap](), nil
	other.mu.Unlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.subjects, idx.facts = subjects, facts
	idx.logger.Debug("index replaced", "facts", len(facts))
}
