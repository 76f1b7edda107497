package svg

import (
	"encoding/base64"
	"errors"
	"strings"
)

// EmbeddedMarker prefixes href values that carry a nested SVG document.
const EmbeddedMarker = "data:image/svg+xml;base64"

var errNoPayload = errors.New("svg: href carries no base64 payload")

func isEmbedded(n *Node) bool {
	href, ok := n.Get("href")
	return ok && strings.Contains(href, EmbeddedMarker)
}

func isAnimate(n *Node) bool {
	return n.Kind == ElementNode && n.Name.Local == "animate"
}

// HasAnimation reports whether the first base64-embedded SVG inside data
// contains an <animate> element at any depth. Later embedded documents are
// not inspected. An error is returned only when data itself is not a
// well-formed document; an unreadable embedded payload counts as static.
func HasAnimation(data []byte) (bool, error) {
	doc, err := Parse(data)
	if err != nil {
		return false, err
	}

	el := doc.Find(isEmbedded)
	if el == nil {
		return false, nil
	}

	href, _ := el.Get("href")
	inner, err := decodeEmbedded(href)
	if err != nil {
		return false, nil
	}
	nested, err := Parse(inner)
	if err != nil {
		return false, nil
	}

	return nested.Find(isAnimate) != nil, nil
}

func decodeEmbedded(href string) ([]byte, error) {
	i := strings.Index(href, EmbeddedMarker)
	if i < 0 {
		return nil, errNoPayload
	}
	rest := href[i+len(EmbeddedMarker):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, errNoPayload
	}

	payload := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, rest[comma+1:])

	out, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		out, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	return out, err
}

func encodeEmbedded(doc []byte) string {
	return EmbeddedMarker + "," + base64.StdEncoding.EncodeToString(doc)
}
