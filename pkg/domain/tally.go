package domain

// Tally счётчик голосов по элементам
type Tally[T comparable] map[T]int

// NewTally создаёт пустой счётчик
func NewTally[T comparable]() Tally[T] {
	return make(Tally[T])
}

// Vote добавляет голос за элемент
func (t Tally[T]) Vote(item T) {
	t[item]++
}

// Count возвращает количество голосов
func (t Tally[T]) Count(item T) int {
	return t[item]
}

// Total возвращает сумму голосов
func (t Tally[T]) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Keys возвращает множество элементов, получивших хотя бы один голос
func (t Tally[T]) Keys() Set[T] {
	out := make(Set[T], len(t))
	for item, c := range t {
		if c > 0 {
			out[item] = struct{}{}
		}
	}
	return out
}
