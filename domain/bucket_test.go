package domain

import (
	"testing"
	"time"
)

func dayTask(id, userID string, due time.Time, order int) Task {
	return Task{
		ID:           id,
		Title:        "task " + id,
		Status:       StatusIncomplete,
		DueDate:      due,
		Category:     CategoryWork,
		DisplayOrder: order,
		UserID:       userID,
	}
}

func TestBucketByDayPartitionsInput(t *testing.T) {
	clock := mustClock(t, "America/Los_Angeles")
	tasks := []Task{
		dayTask("a", "u1", time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC), 20),
		dayTask("b", "u1", time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), 10),
		dayTask("c", "u1", time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), 10),
		// 06:30 UTC on the 16th is still the evening of the 15th in LA.
		dayTask("d", "u1", time.Date(2025, 6, 16, 6, 30, 0, 0, time.UTC), 5),
	}
	buckets := BucketByDay(clock, tasks)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %v", len(buckets), buckets)
	}
	total := 0
	for key, bucket := range buckets {
		total += len(bucket)
		for _, task := range bucket {
			if clock.DayKey(task.DueDate) != key {
				t.Fatalf("task %s keyed %s but bucketed under %s", task.ID, clock.DayKey(task.DueDate), key)
			}
		}
	}
	if total != len(tasks) {
		t.Fatalf("buckets hold %d tasks, input had %d", total, len(tasks))
	}
	day15 := buckets["2025-06-15"]
	if len(day15) != 3 || day15[0].ID != "d" || day15[1].ID != "b" || day15[2].ID != "a" {
		t.Fatalf("unexpected order for 2025-06-15: %#v", day15)
	}
	if len(buckets["2025-06-16"]) != 1 || buckets["2025-06-16"][0].ID != "c" {
		t.Fatalf("unexpected bucket for 2025-06-16: %#v", buckets["2025-06-16"])
	}
}

func TestBucketByDayEmptyInput(t *testing.T) {
	clock := mustClock(t, "UTC")
	if buckets := BucketByDay(clock, nil); len(buckets) != 0 {
		t.Fatalf("expected no buckets, got %v", buckets)
	}
}

func TestSortBucketBreaksTiesByID(t *testing.T) {
	due := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	bucket := []Task{
		dayTask("z", "u1", due, 10),
		dayTask("a", "u1", due, 10),
		dayTask("m", "u1", due, 5),
	}
	SortBucket(bucket)
	if bucket[0].ID != "m" || bucket[1].ID != "a" || bucket[2].ID != "z" {
		t.Fatalf("unexpected sort: %s %s %s", bucket[0].ID, bucket[1].ID, bucket[2].ID)
	}
}

func TestBucketOrders(t *testing.T) {
	due := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	bucket := []Task{dayTask("a", "u1", due, 10), dayTask("b", "u1", due, 30)}
	orders := BucketOrders(bucket)
	if len(orders) != 2 || orders[0] != 10 || orders[1] != 30 {
		t.Fatalf("unexpected orders %v", orders)
	}
}
