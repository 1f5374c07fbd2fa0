package frame

import (
	xxhash "github.com/cespare/xxhash/v2"
)

const (
	indexLoadFactor     = 0.75 // resize threshold for the row index
	indexGrowthFactor   = 2    // capacity multiplier on resize
	indexCapacityFactor = 1.3  // initial capacity headroom over estimated size
)

// rowIndex maps composite key strings to the row positions holding them.
// It backs join probing and uses xxhash over power-of-two bucket counts so
// the bucket can be selected with a mask instead of a modulo.
type rowIndex struct {
	buckets  [][]indexEntry
	capacity int
	size     int
}

type indexEntry struct {
	hash uint64
	key  string
	rows []int
}

// newRowIndex creates a row index sized for the estimated number of keys.
func newRowIndex(estimatedSize int) *rowIndex {
	capacity := nextPowerOfTwo(int(float64(estimatedSize) * indexCapacityFactor))
	return &rowIndex{
		buckets:  make([][]indexEntry, capacity),
		capacity: capacity,
	}
}

// Add records that key occurs at row.
func (ri *rowIndex) Add(key string, row int) {
	hash := xxhash.Sum64String(key)
	bucketIdx := int(hash & uint64(ri.capacity-1))

	for i := range ri.buckets[bucketIdx] {
		if ri.buckets[bucketIdx][i].hash == hash && ri.buckets[bucketIdx][i].key == key {
			ri.buckets[bucketIdx][i].rows = append(ri.buckets[bucketIdx][i].rows, row)
			return
		}
	}

	ri.buckets[bucketIdx] = append(ri.buckets[bucketIdx], indexEntry{
		hash: hash,
		key:  key,
		rows: []int{row},
	})
	ri.size++

	if float64(ri.size) > float64(ri.capacity)*indexLoadFactor {
		ri.resize()
	}
}

// Rows returns the row positions recorded for key.
func (ri *rowIndex) Rows(key string) ([]int, bool) {
	hash := xxhash.Sum64String(key)
	bucketIdx := int(hash & uint64(ri.capacity-1))

	for _, entry := range ri.buckets[bucketIdx] {
		if entry.hash == hash && entry.key == key {
			return entry.rows, true
		}
	}

	return nil, false
}

// resize doubles the capacity and redistributes all entries.
func (ri *rowIndex) resize() {
	newCapacity := ri.capacity * indexGrowthFactor
	newBuckets := make([][]indexEntry, newCapacity)

	for _, bucket := range ri.buckets {
		for _, entry := range bucket {
			newBucketIdx := int(entry.hash & uint64(newCapacity-1))
			newBuckets[newBucketIdx] = append(newBuckets[newBucketIdx], entry)
		}
	}

	ri.buckets = newBuckets
	ri.capacity = newCapacity
}

// nextPowerOfTwo returns the next power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
