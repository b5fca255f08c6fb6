package dom

import "strings"

const dataPrefix = "data-"

// DataAttr maps a camelCase dataset key onto its attribute name, e.g.
// "fetchMethod" becomes "data-fetch-method".
func DataAttr(key string) string {
	var b strings.Builder
	b.Grow(len(dataPrefix) + len(key) + 4)
	b.WriteString(dataPrefix)
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DataKey maps a data attribute name back onto its dataset key. The second
// return value is false for attributes outside the data- namespace.
func DataKey(attr string) (string, bool) {
	name := strings.ToLower(attr)
	if !strings.HasPrefix(name, dataPrefix) {
		return "", false
	}
	rest := name[len(dataPrefix):]

	var b strings.Builder
	b.Grow(len(rest))
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '-' && i+1 < len(rest) && rest[i+1] >= 'a' && rest[i+1] <= 'z' {
			b.WriteByte(rest[i+1] - ('a' - 'A'))
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}
