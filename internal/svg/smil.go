package svg

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const defaultDuration = time.Second

// maxClock bounds begin and dur so begin+dur and t-begin stay in range.
const maxClock = time.Duration(math.MaxInt64 / 4)

// animation is one <animate> element resolved against its target.
type animation struct {
	target   *Node
	attr     string
	base     string
	hasBase  bool
	values   []string
	discrete bool
	begin    time.Duration
	dur      time.Duration
	repeat   float64 // <=0 means indefinite
	freeze   bool
}

// collect resolves every <animate> in doc. Targets are the parent element or
// the element named by an href="#id".
func collect(doc *Node) []animation {
	ids := map[string]*Node{}
	doc.Walk(func(n *Node) bool {
		if n.Kind == ElementNode {
			if id, ok := n.Get("id"); ok {
				ids[id] = n
			}
		}
		return true
	})

	var out []animation
	var visit func(parent, n *Node)
	visit = func(parent, n *Node) {
		if isAnimate(n) && parent != nil {
			if a, ok := resolve(parent, n, ids); ok {
				out = append(out, a)
			}
		}
		for _, c := range n.Children {
			visit(n, c)
		}
	}
	visit(nil, doc)
	return out
}

func resolve(parent, n *Node, ids map[string]*Node) (animation, bool) {
	target := parent
	if parent.Kind != ElementNode {
		return animation{}, false
	}
	if href, ok := n.Get("href"); ok && strings.HasPrefix(href, "#") {
		t, found := ids[href[1:]]
		if !found {
			return animation{}, false
		}
		target = t
	}

	attr, ok := n.Get("attributeName")
	if !ok || attr == "" {
		return animation{}, false
	}

	a := animation{target: target, attr: attr}
	a.base, a.hasBase = target.Get(attr)

	if v, ok := n.Get("values"); ok {
		for _, s := range strings.Split(v, ";") {
			if s = strings.TrimSpace(s); s != "" {
				a.values = append(a.values, s)
			}
		}
	} else {
		from, hasFrom := n.Get("from")
		to, hasTo := n.Get("to")
		if !hasTo {
			return animation{}, false
		}
		if !hasFrom {
			from = a.base
		}
		a.values = []string{from, to}
	}
	if len(a.values) == 0 {
		return animation{}, false
	}

	a.dur = defaultDuration
	if v, ok := n.Get("dur"); ok {
		if d, ok := parseClock(v); ok && d > 0 {
			a.dur = d
		}
	}
	if v, ok := n.Get("begin"); ok {
		if d, ok := parseClock(v); ok {
			a.begin = d
		}
	}
	a.repeat = 1
	if v, ok := n.Get("repeatCount"); ok {
		if v == "indefinite" {
			a.repeat = 0
		} else if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			a.repeat = f
		}
	}
	if v, ok := n.Get("fill"); ok && v == "freeze" {
		a.freeze = true
	}
	mode, _ := n.Get("calcMode")
	a.discrete = mode == "discrete" || !numeric(a.values)

	return a, true
}

// end is the time the first full cycle of the animation finishes.
func (a animation) end() time.Duration {
	return a.begin + a.dur
}

// valueAt returns the attribute value at t and whether it should be set.
func (a animation) valueAt(t time.Duration) (string, bool) {
	if t < a.begin {
		return a.base, a.hasBase
	}
	elapsed := max(t-a.begin, 0)
	if a.repeat > 0 && float64(elapsed) >= a.repeat*float64(a.dur) {
		if a.freeze {
			return a.values[len(a.values)-1], true
		}
		return a.base, a.hasBase
	}

	p := float64(elapsed%a.dur) / float64(a.dur)
	if p < 0 || p >= 1 || math.IsNaN(p) {
		p = 0
	}
	n := len(a.values)
	if n == 1 {
		return a.values[0], true
	}
	if a.discrete {
		return a.values[max(min(int(p*float64(n)), n-1), 0)], true
	}

	seg := p * float64(n-1)
	i := max(min(int(seg), n-2), 0)
	from, unit, _ := parseNumber(a.values[i])
	to, _, _ := parseNumber(a.values[i+1])
	v := from + (to-from)*(seg-float64(i))
	return strconv.FormatFloat(v, 'f', -1, 64) + unit, true
}

func numeric(values []string) bool {
	unit := ""
	for i, v := range values {
		_, u, ok := parseNumber(v)
		if !ok {
			return false
		}
		if i == 0 {
			unit = u
		} else if u != unit {
			return false
		}
	}
	return true
}

// parseNumber splits "12.5px" into 12.5 and "px".
func parseNumber(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && strings.IndexByte("+-.0123456789eE", s[end]) >= 0 {
		end++
	}
	// an exponent marker not followed by digits belongs to the unit ("em")
	for end > 0 && (s[end-1] == 'e' || s[end-1] == 'E') {
		end--
	}
	if end == 0 {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(f) {
		return 0, "", false
	}
	unit := s[end:]
	if unit != "" && unit != "%" && strings.ContainsAny(unit, " ,;()") {
		return 0, "", false
	}
	return f, unit, true
}

// parseClock understands SMIL clock values: "2s", "250ms", "1.5", "0.5min",
// "1h" and "hh:mm:ss(.frac)" / "mm:ss(.frac)".
func parseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "indefinite" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, false
		}
		var total float64
		for _, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil || !(f >= 0) {
				return 0, false
			}
			total = total*60 + f
		}
		return clock(total * float64(time.Second))
	}

	scale := float64(time.Second)
	switch {
	case strings.HasSuffix(s, "ms"):
		s, scale = strings.TrimSuffix(s, "ms"), float64(time.Millisecond)
	case strings.HasSuffix(s, "min"):
		s, scale = strings.TrimSuffix(s, "min"), float64(time.Minute)
	case strings.HasSuffix(s, "h"):
		s, scale = strings.TrimSuffix(s, "h"), float64(time.Hour)
	case strings.HasSuffix(s, "s"):
		s = strings.TrimSuffix(s, "s")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !(f >= 0) {
		return 0, false
	}
	return clock(f * scale)
}

// clock converts nanoseconds to a Duration, refusing values past maxClock.
func clock(ns float64) (time.Duration, bool) {
	if math.IsInf(ns, 0) || math.IsNaN(ns) || ns > float64(maxClock) {
		return 0, false
	}
	return time.Duration(ns), true
}
