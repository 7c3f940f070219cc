package zsplice

import "testing"

// The wait-vs-fail decision folds three independent flags; every
// combination is pinned down here.
func TestBlockingAllowed(t *testing.T) {
	cases := []struct {
		override, srcNonblock, dstNonblock bool
		want                               bool
	}{
		{false, false, false, true},
		{false, false, true, false},
		{false, true, false, false},
		{false, true, true, false},
		{true, false, false, false},
		{true, false, true, false},
		{true, true, false, false},
		{true, true, true, false},
	}
	for _, c := range cases {
		got := blockingAllowed(c.override, c.srcNonblock, c.dstNonblock)
		if got != c.want {
			t.Errorf("blockingAllowed(%v, %v, %v) = %v, want %v",
				c.override, c.srcNonblock, c.dstNonblock, got, c.want)
		}
	}
}
