package tristore

import "slices"

// keyed is a string-keyed map that remembers insertion order, so that
// Subjects, Predicates, Objects and Match return keys in the order they were
// first added.
type keyed[V any] struct {
	keys []string
	m    map[string]V
}

func newKeyed[V any]() *keyed[V] {
	return &keyed[V]{m: make(map[string]V)}
}

func (k *keyed[V]) get(key string) (V, bool) {
	v, ok := k.m[key]
	return v, ok
}

func (k *keyed[V]) has(key string) bool {
	_, ok := k.m[key]
	return ok
}

// set stores v under key, appending key to the order if it is new.
func (k *keyed[V]) set(key string, v V) {
	if _, ok := k.m[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.m[key] = v
}

func (k *keyed[V]) remove(key string) {
	if _, ok := k.m[key]; !ok {
		return
	}
	delete(k.m, key)
	if i := slices.Index(k.keys, key); i >= 0 {
		k.keys = slices.Delete(k.keys, i, i+1)
	}
}

func (k *keyed[V]) len() int {
	return len(k.keys)
}

// order returns a copy of the keys in insertion order.
func (k *keyed[V]) order() []string {
	if len(k.keys) == 0 {
		return nil
	}
	return slices.Clone(k.keys)
}
