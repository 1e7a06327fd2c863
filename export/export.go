// Package export renders a read-only article snapshot into downloadable
// documents.
package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"news_blog_gen/article"
)

type Format string

const (
	FormatWord Format = "doc"
	FormatHTML Format = "html"
)

var Formats = []Format{FormatWord, FormatHTML}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doc", "word":
		return FormatWord, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatWord {
		return "application/msword"
	}
	return "text/html; charset=utf-8"
}

const (
	wordHeader = "<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'><head><meta charset='utf-8'><title>%s</title></head><body>"
	wordFooter = "</body></html>"

	digestLimit   = 120
	filenameRunes = 20
)

// Render converts a into a complete document in format f.
func Render(a article.Article, f Format) ([]byte, error) {
	footer, err := renderFooter(a)
	if err != nil {
		return nil, err
	}
	title := html.EscapeString(a.Title)

	var buf bytes.Buffer
	switch f {
	case FormatWord:
		// Word 会忽略样式表，标题改成带字号的段落以保留层级。
		fmt.Fprintf(&buf, wordHeader, title)
		buf.WriteString(convertHeadingsInline("<h1>" + title + "</h1>\n" + a.Body + "\n" + footer))
		buf.WriteString(wordFooter)
	case FormatHTML:
		buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
		fmt.Fprintf(&buf, "<title>%s</title>\n", title)
		fmt.Fprintf(&buf, "<meta name=\"description\" content=\"%s\">\n", html.EscapeString(digest(a.Body, digestLimit)))
		buf.WriteString("</head>\n<body>\n<article>\n")
		fmt.Fprintf(&buf, "<h1>%s</h1>\n", title)
		buf.WriteString(a.Body)
		buf.WriteString("\n")
		buf.WriteString(footer)
		buf.WriteString("</article>\n</body>\n</html>\n")
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	return buf.Bytes(), nil
}

// Filename derives a file name from the first characters of the title.
func Filename(a article.Article, f Format) string {
	name := []rune(strings.TrimSpace(a.Title))
	if len(name) > filenameRunes {
		name = name[:filenameRunes]
	}
	base := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(string(name), "_"))
	if base == "" {
		base = "article"
	}
	return base + "." + string(f)
}

// WriteFile renders a into dir and returns the written path.
func WriteFile(dir string, a article.Article, f Format) (string, error) {
	data, err := Render(a, f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(a, f))
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// renderFooter 以 Markdown 组装来源与标签，再转换为 HTML。
func renderFooter(a article.Article) (string, error) {
	if len(a.Sources) == 0 && len(a.Tags) == 0 {
		return "", nil
	}
	var md strings.Builder
	md.WriteString("---\n\n")
	if len(a.Sources) > 0 {
		md.WriteString("#### Sources\n\n")
		for _, s := range a.Sources {
			if s.URL == "" {
				md.WriteString(fmt.Sprintf("- %s\n", escapeMarkdown(s.Title)))
				continue
			}
			md.WriteString(fmt.Sprintf("- [%s](<%s>)\n", escapeMarkdown(s.Title), s.URL))
		}
		md.WriteString("\n")
	}
	if len(a.Tags) > 0 {
		tags := make([]string, len(a.Tags))
		for i, t := range a.Tags {
			tags[i] = "#" + escapeMarkdown(t)
		}
		md.WriteString(strings.Join(tags, " "))
		md.WriteString("\n")
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var markdownSpecial = strings.NewReplacer(
	`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`", "<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownSpecial.Replace(s)
}

var headingRe = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)

var headingSizes = map[string]string{
	"1": "24px",
	"2": "22px",
	"3": "20px",
	"4": "18px",
	"5": "16px",
	"6": "15px",
}

func convertHeadingsInline(s string) string {
	return headingRe.ReplaceAllStringFunc(s, func(block string) string {
		parts := headingRe.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := headingSizes[parts[1]]
		text := strings.TrimSpace(parts[2])
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, text)
	})
}

// digest 取正文纯文本的前 limit 个字符作为摘要。
func digest(body string, limit int) string {
	joined := strings.Join(strings.Fields(article.PlainText(body)), " ")
	r := []rune(joined)
	if len(r) <= limit {
		return joined
	}
	return string(r[:limit])
}

// writeFileAtomic writes to a temporary file, fsyncs it and renames it over
// path so a reader never sees a partial export.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
