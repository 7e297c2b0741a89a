package unit

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// splitFragment cuts markup into descriptors at every <script> element:
// runs of ordinary markup become html chunks, scripts with a src become
// script chunks and inline scripts become js chunks. Scripts with neither
// are dropped, as are whitespace-only runs of markup.
//
// hasScript reports whether any script element was found; when it is false
// the caller can inject the markup as it is.
func splitFragment(src string) (chunks []Descriptor, hasScript bool) {
	z := html.NewTokenizer(strings.NewReader(src))

	var markup strings.Builder
	flush := func() {
		if strings.TrimSpace(markup.String()) != "" {
			chunks = append(chunks, Descriptor{Type: KindHTML, Src: markup.String()})
		}
		markup.Reset()
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF, or input the tokenizer cannot continue past
			break
		}

		// Raw must be read before Token, which lowercases tag names in place
		raw := string(z.Raw())
		tok := z.Token()
		if tok.DataAtom != atom.Script {
			markup.WriteString(raw)
			continue
		}
		if tt == html.EndTagToken {
			// stray </script>
			continue
		}

		hasScript = true
		flush()

		scriptSrc := attr(tok, "src")
		var text string
		if tt == html.StartTagToken {
			text = scriptBody(z)
		}

		switch {
		case scriptSrc != "":
			chunks = append(chunks, Descriptor{Type: KindScript, Src: scriptSrc})
		case strings.TrimSpace(text) != "":
			chunks = append(chunks, Descriptor{Type: KindJS, Src: text})
		}
	}
	flush()

	return chunks, hasScript
}

// scriptBody consumes tokens up to and including </script> and returns the
// raw text in between.
func scriptBody(z *html.Tokenizer) string {
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "script" {
				return b.String()
			}
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
