package multipart

// matcher finds how much of a window tail may still turn into a delimiter.
// fail is the Knuth-Morris-Pratt failure table of delim.
type matcher struct {
	delim []byte
	fail  []int
}

func newMatcher(delim []byte) *matcher {
	fail := make([]int, len(delim))
	for i, k := 1, 0; i < len(delim); i++ {
		for k > 0 && delim[i] != delim[k] {
			k = fail[k-1]
		}
		if delim[i] == delim[k] {
			k++
		}
		fail[i] = k
	}
	return &matcher{delim: delim, fail: fail}
}

// heldSuffix returns the length of the longest suffix of window that is a
// proper prefix of the delimiter. Only the last len(delim)-1 bytes can take
// part, so the cost is bounded by the delimiter length.
func (m *matcher) heldSuffix(window []byte) int {
	from := len(window) - (len(m.delim) - 1)
	if from < 0 {
		from = 0
	}
	k := 0
	for _, b := range window[from:] {
		for k > 0 && b != m.delim[k] {
			k = m.fail[k-1]
		}
		if b == m.delim[k] {
			k++
		}
		if k == len(m.delim) {
			k = m.fail[k-1]
		}
	}
	return k
}
