package bus

import "strings"

// ancestors returns the dot-truncated prefixes of topic, most specific
// first: "a.b.c" yields ["a.b", "a"].
func ancestors(topic string) []string {
	var out []string
	for pos := strings.LastIndexByte(topic, '.'); pos != -1; pos = strings.LastIndexByte(topic, '.') {
		topic = topic[:pos]
		out = append(out, topic)
	}
	return out
}

// isDescendantOrSelf reports whether candidate equals topic or lies below
// it in the hierarchy. "car.drive" is below "car"; "carpet" is not.
func isDescendantOrSelf(candidate, topic string) bool {
	if !strings.HasPrefix(candidate, topic) {
		return false
	}
	return len(candidate) == len(topic) || candidate[len(topic)] == '.'
}
