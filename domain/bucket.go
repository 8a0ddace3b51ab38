package domain

import "sort"

// BucketByDay groups tasks by the civil day their due date falls on. Within
// a bucket tasks are ordered by display order ascending, with the task ID as
// a deterministic tie-break. Pure; the input slice is not modified.
func BucketByDay(clock DayClock, tasks []Task) map[string][]Task {
	buckets := make(map[string][]Task)
	for _, t := range tasks {
		key := clock.DayKey(t.DueDate)
		buckets[key] = append(buckets[key], t)
	}
	for _, bucket := range buckets {
		SortBucket(bucket)
	}
	return buckets
}

// SortBucket orders a single day bucket in place by (DisplayOrder, ID).
func SortBucket(bucket []Task) {
	sort.SliceStable(bucket, func(i, j int) bool {
		if bucket[i].DisplayOrder != bucket[j].DisplayOrder {
			return bucket[i].DisplayOrder < bucket[j].DisplayOrder
		}
		return bucket[i].ID < bucket[j].ID
	})
}

// BucketOrders extracts the display orders of an already grouped bucket, in
// slice order. Used to feed the order allocator.
func BucketOrders(bucket []Task) []int {
	orders := make([]int, len(bucket))
	for i, t := range bucket {
		orders[i] = t.DisplayOrder
	}
	return orders
}
