// Package tristore provides an in-memory triple store of subject, predicate,
// object facts with case-insensitive subject and predicate lookup, wildcard
// pattern matching and cascading deletion, plus a bulk loader for
// colon-delimited text files.
//
// # Conventions
//
// Subjects and predicates are normalized to upper case on the way in, so
// "Dog" and "DOG" name the same subject. Objects are stored verbatim and
// compared case-sensitively:
//
//	idx.Add("cat", "isa", "Animal")
//	idx.HasSubject("CAT")                 // true
//	idx.HasObject("Cat", "IsA", "animal") // false
//
// In queries an empty string means "any value" at that position.
package tristore

import (
	"errors"
)

// Fact is a single subject, predicate, object statement. Subject and
// Predicate hold the normalized (upper-cased) keys once stored in an index.
type Fact struct {
	Subject   string
	Predicate string
	Object    string
}

// String renders the fact in the loader's line format.
func (f Fact) String() string {
	return f.Subject + DefaultDelimiter + f.Predicate + DefaultDelimiter + f.Object
}

// ErrMissingTerm is returned by Add when the subject or predicate is empty.
var ErrMissingTerm = errors.New("tristore: subject and predicate are required")

// Observer receives index and loader events. Implementations must be safe
// for concurrent use; index events are delivered while the index lock is held,
// so an Observer must not call back into the index.
type Observer interface {
	FactAdded(f Fact)
	FactDuplicate(f Fact)
	FactRemoved(f Fact)
	IndexReset()
	FileLoaded(path string, triples int)
	FileFailed(path string, err error)
}

// nopObserver discards all events.
type nopObserver struct{}

func (nopObserver) FactAdded(Fact)           {}
func (nopObserver) FactDuplicate(Fact)       {}
func (nopObserver) FactRemoved(Fact)         {}
func (nopObserver) IndexReset()              {}
func (nopObserver) FileLoaded(string, int)   {}
func (nopObserver) FileFailed(string, error) {}
