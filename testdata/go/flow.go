package flow

func sum(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			s += i
		} else {
			s = s - 1
		}
	}
	return s
}

func classify(x int) string {
	var label string
	switch {
	case x < 0:
		label = "negative"
	case x == 0:
		label = "zero"
	default:
		label = "positive"
	}
	return label
}

func find(items []int, target int) int {
	idx := -1
	for i, v := range items {
		if v == target {
			idx = i
			break
		}
	}
	return idx
}

type counter struct{ n int }

func (c *counter) Add(delta int) {
	// comment lines never become nodes
	c.n += delta
}
