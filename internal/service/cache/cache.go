package cache

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrInvalidCapacity = errors.New("cache: ёмкость должна быть положительной")

// Bounded: кэш фиксированной ёмкости с вытеснением давно не использованных (LRU) ключей.
// Get и ContainsKey при попадании поднимают ключ в начало очереди, Put всегда.
type Bounded[K comparable, V any] struct {
	capacity int
	lru      *lru.Cache[K, V]
}

// New создаёт кэш. onEvict (может быть nil) вызывается ровно один раз на каждое вытеснение.
func New[K comparable, V any](capacity int, onEvict func(key K, value V)) (*Bounded[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	var (
		c   *lru.Cache[K, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict[K, V](capacity, onEvict)
	} else {
		c, err = lru.New[K, V](capacity)
	}
	if err != nil {
		return nil, err
	}
	return &Bounded[K, V]{capacity: capacity, lru: c}, nil
}

func (b *Bounded[K, V]) Get(key K) (V, bool) { return b.lru.Get(key) }

// Put вставляет или обновляет значение; при переполнении вытесняется самый старый ключ.
func (b *Bounded[K, V]) Put(key K, value V) { b.lru.Add(key, value) }

// ContainsKey в отличие от lru.Contains учитывает обращение в порядке давности.
func (b *Bounded[K, V]) ContainsKey(key K) bool {
	_, ok := b.lru.Get(key)
	return ok
}

func (b *Bounded[K, V]) Len() int      { return b.lru.Len() }
func (b *Bounded[K, V]) Capacity() int { return b.capacity }

// Purge очищает кэш. onEvict вызывается для каждого удалённого элемента.
func (b *Bounded[K, V]) Purge() { b.lru.Purge() }
