package domain

// Buckets отображение id -> множество соседей
//
// Используется для всех списков смежности экземпляра. Для симметричных
// отношений вызывающий код добавляет обе стороны.
type Buckets[K comparable, V comparable] map[K]Set[V]

// NewBuckets создаёт пустые корзины
func NewBuckets[K comparable, V comparable]() Buckets[K, V] {
	return make(Buckets[K, V])
}

// Push добавляет value в корзину key, создавая корзину при необходимости
func (b Buckets[K, V]) Push(key K, value V) {
	bucket, ok := b[key]
	if !ok {
		bucket = make(Set[V])
		b[key] = bucket
	}
	bucket[value] = struct{}{}
}

// Has проверяет наличие value в корзине key
func (b Buckets[K, V]) Has(key K, value V) bool {
	return b[key].Has(value)
}

// HasKey проверяет, что корзина key существует и не пуста
func (b Buckets[K, V]) HasKey(key K) bool {
	return len(b[key]) > 0
}

// Get возвращает корзину (nil, если её нет)
func (b Buckets[K, V]) Get(key K) Set[V] {
	return b[key]
}

// Size возвращает размер корзины key
func (b Buckets[K, V]) Size(key K) int {
	return len(b[key])
}

// Pairs возвращает общее количество пар key-value
func (b Buckets[K, V]) Pairs() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket)
	}
	return n
}
