package article

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrMalformedMarkup reports body markup whose tags do not balance.
var ErrMalformedMarkup = errors.New("malformed markup")

// mediaAtoms are the elements whose src attribute counts as an embedded media
// reference.
var mediaAtoms = map[atom.Atom]bool{
	atom.Img:    true,
	atom.Video:  true,
	atom.Audio:  true,
	atom.Source: true,
	atom.Iframe: true,
	atom.Embed:  true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// Elements whose end tag HTML lets the parser infer.
var impliedEnd = map[string]bool{
	"p": true, "li": true, "dt": true, "dd": true, "option": true, "optgroup": true,
	"tr": true, "td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"rb": true, "rt": true, "rtc": true, "rp": true, "colgroup": true,
	"html": true, "head": true, "body": true,
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Blockquote: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Tr: true, atom.Pre: true, atom.Figure: true, atom.Section: true,
}

// MediaRefs returns the distinct media locators embedded in body, in document
// order. Both src and every srcset candidate count.
func MediaRefs(body string) []string {
	var refs []string
	seen := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return refs
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if !mediaAtoms[tok.DataAtom] {
			continue
		}
		locators := append([]string{strings.TrimSpace(attr(tok, "src"))}, srcsetURLs(attr(tok, "srcset"))...)
		for _, ref := range locators {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
}

// srcsetURLs extracts the candidate URLs of a srcset attribute, dropping the
// width and density descriptors.
func srcsetURLs(srcset string) []string {
	var urls []string
	s := srcset
	for {
		s = strings.TrimLeft(s, " \t\n\r\f,")
		if s == "" {
			return urls
		}
		end := strings.IndexAny(s, " \t\n\r\f")
		if end < 0 {
			end = len(s)
		}
		url := s[:end]
		s = s[end:]
		if trimmed := strings.TrimRight(url, ","); trimmed != url {
			// 以逗号结尾的 URL 没有描述符
			urls = append(urls, trimmed)
			continue
		}
		urls = append(urls, url)
		if comma := strings.IndexByte(s, ','); comma >= 0 {
			s = s[comma+1:]
		} else {
			s = ""
		}
	}
}

// MissingRefs lists the entries of before that are absent from after.
func MissingRefs(before, after []string) []string {
	present := make(map[string]bool, len(after))
	for _, r := range after {
		present[r] = true
	}
	var missing []string
	for _, r := range before {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// CheckMarkup verifies that every non-void element in body is closed in
// order. Elements with an implied end tag (p, li, td, ...) may be left open.
func CheckMarkup(body string) error {
	var stack []string
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return fmt.Errorf("%w: %v", ErrMalformedMarkup, err)
			}
			for i := len(stack) - 1; i >= 0; i-- {
				if !impliedEnd[stack[i]] {
					return fmt.Errorf("%w: <%s> is never closed", ErrMalformedMarkup, stack[i])
				}
			}
			return nil
		case html.StartTagToken:
			name := z.Token().Data
			if voidElements[name] {
				continue
			}
			stack = append(stack, name)
		case html.EndTagToken:
			name := z.Token().Data
			if voidElements[name] {
				continue
			}
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("%w: unexpected </%s>", ErrMalformedMarkup, name)
			}
			for _, open := range stack[idx+1:] {
				if !impliedEnd[open] {
					return fmt.Errorf("%w: <%s> closed by </%s>", ErrMalformedMarkup, open, name)
				}
			}
			stack = stack[:idx]
		}
	}
}

// HasMarkup reports whether s contains at least one element tag.
func HasMarkup(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			return true
		}
	}
}

// PlainText renders body as readable text: one block per line, list items
// bulleted, images shown by their alt text.
func PlainText(body string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidyLines(b.String())
		case html.TextToken:
			b.WriteString(collapseSpace(string(z.Text())))
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Br:
				b.WriteByte('\n')
			case atom.Li:
				b.WriteString("\n• ")
			case atom.Img:
				fmt.Fprintf(&b, "\n[image: %s]\n", attr(tok, "alt"))
			}
			if blockAtoms[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if blockAtoms[z.Token().DataAtom] {
				b.WriteByte('\n')
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func tidyLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
