package domain

// OrderGap is the spacing reserved between neighboring display orders so
// later insertions can take a midpoint instead of renumbering siblings.
const OrderGap = 10

// AppendOrder returns a display order that sorts after every value in
// existing. An empty bucket starts at OrderGap.
func AppendOrder(existing []int) int {
	if len(existing) == 0 {
		return OrderGap
	}
	max := existing[0]
	for _, v := range existing[1:] {
		if v > max {
			max = v
		}
	}
	return max + OrderGap
}

// PrependOrder returns a display order that sorts before every value in
// existing. When the current minimum leaves no positive room the value goes
// below zero; only relative order matters.
func PrependOrder(existing []int) int {
	if len(existing) == 0 {
		return OrderGap
	}
	min := existing[0]
	for _, v := range existing[1:] {
		if v < min {
			min = v
		}
	}
	if min > 0 {
		return floorDiv(min, 2)
	}
	return min - OrderGap
}

// BetweenOrder returns the midpoint between two neighboring display orders.
// When prev and next are adjacent integers there is no room; the lower bound
// is returned together with ErrNoOrderGap and the caller must renumber the
// bucket.
func BetweenOrder(prev, next int) (int, error) {
	if next-prev < 2 {
		return prev, ErrNoOrderGap
	}
	return floorDiv(prev+next, 2), nil
}

// floorDiv divides rounding toward negative infinity, unlike Go's
// truncating integer division, so midpoints stay strictly inside negative
// ranges too.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
