package domain

import (
	"errors"
	"testing"
)

func TestAppendOrderGrowsStrictly(t *testing.T) {
	var orders []int
	for i := 0; i < 50; i++ {
		next := AppendOrder(orders)
		if len(orders) > 0 && next <= orders[len(orders)-1] {
			t.Fatalf("append %d not strictly increasing after %v", next, orders)
		}
		orders = append(orders, next)
	}
	if orders[0] != OrderGap {
		t.Fatalf("first append into empty bucket: got %d, want %d", orders[0], OrderGap)
	}
}

func TestAppendOrderIgnoresSliceOrder(t *testing.T) {
	if got := AppendOrder([]int{30, 10, 50, 20}); got != 60 {
		t.Fatalf("got %d, want 60", got)
	}
}

func TestPrependOrder(t *testing.T) {
	cases := []struct {
		existing []int
		want     int
	}{
		{nil, OrderGap},
		{[]int{10, 20}, 5},
		{[]int{7}, 3},
		{[]int{1, 10}, 0},
		{[]int{0, 10}, -OrderGap},
		{[]int{-4, 10}, -4 - OrderGap},
	}
	for _, c := range cases {
		if got := PrependOrder(c.existing); got != c.want {
			t.Fatalf("prepend before %v: got %d, want %d", c.existing, got, c.want)
		}
		if len(c.existing) > 0 {
			min := c.existing[0]
			for _, v := range c.existing[1:] {
				if v < min {
					min = v
				}
			}
			if got := PrependOrder(c.existing); got >= min {
				t.Fatalf("prepend %d does not sort before min %d", got, min)
			}
		}
	}
}

func TestBetweenOrderStaysInsideBounds(t *testing.T) {
	cases := [][2]int{{10, 20}, {0, 10}, {-20, -10}, {5, 7}, {-3, 2}}
	for _, c := range cases {
		got, err := BetweenOrder(c[0], c[1])
		if err != nil {
			t.Fatalf("between %d and %d: %v", c[0], c[1], err)
		}
		if got <= c[0] || got >= c[1] {
			t.Fatalf("between %d and %d: %d escapes bounds", c[0], c[1], got)
		}
	}
}

func TestBetweenOrderAdjacentSignalsNoGap(t *testing.T) {
	for _, c := range [][2]int{{10, 11}, {0, 1}, {-5, -4}, {7, 7}} {
		got, err := BetweenOrder(c[0], c[1])
		if !errors.Is(err, ErrNoOrderGap) {
			t.Fatalf("between %d and %d: expected ErrNoOrderGap, got %v", c[0], c[1], err)
		}
		if got != c[0] {
			t.Fatalf("between %d and %d: expected lower bound back, got %d", c[0], c[1], got)
		}
	}
}

// Repeated midpoint insertion against the same lower neighbor exhausts the
// gap in a handful of steps; the signal, not a silent fix, is the contract.
func TestRepeatedMidpointExhaustsGap(t *testing.T) {
	prev, next := 0, OrderGap
	steps := 0
	for {
		mid, err := BetweenOrder(prev, next)
		if err != nil {
			break
		}
		next = mid
		steps++
		if steps > 64 {
			t.Fatal("gap never exhausted")
		}
	}
	if steps == 0 {
		t.Fatal("expected at least one successful midpoint")
	}
}
