// Package domain содержит общие контейнеры, используемые всеми компонентами движка:
// множество, корзины смежности и счётчик голосов.
package domain

import (
	"cmp"
	"slices"
)

// Set множество на основе map
//
// Нулевое значение (nil) можно читать, но не изменять.
type Set[T comparable] map[T]struct{}

// NewSet создаёт множество из элементов
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add добавляет элементы
func (s Set[T]) Add(items ...T) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Remove удаляет элементы
func (s Set[T]) Remove(items ...T) {
	for _, item := range items {
		delete(s, item)
	}
}

// Has проверяет принадлежность
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// Len возвращает размер множества
func (s Set[T]) Len() int {
	return len(s)
}

// Clone возвращает копию множества
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Merge добавляет все элементы other (in-place объединение)
func (s Set[T]) Merge(other Set[T]) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// Equal сравнивает множества
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.Has(item) {
			return false
		}
	}
	return true
}

// Union возвращает объединение двух множеств
func Union[T comparable](a, b Set[T]) Set[T] {
	out := make(Set[T], len(a)+len(b))
	out.Merge(a)
	out.Merge(b)
	return out
}

// Difference возвращает a \ b
func Difference[T comparable](a, b Set[T]) Set[T] {
	out := make(Set[T], len(a))
	for item := range a {
		if !b.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// CountMissing считает элементы a, отсутствующие в b, не создавая новое множество
func CountMissing[T comparable](a, b Set[T]) int {
	n := 0
	for item := range a {
		if !b.Has(item) {
			n++
		}
	}
	return n
}

// Sorted возвращает элементы множества по возрастанию
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}
