package generator

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"

	"news_blog_gen/article"
)

// parseDraft 校验模型返回的 JSON 并转换为 Article。
// title、content 必须是非空字符串，tags 必须是字符串数组且至少一个；
// sources 可省略，出现时必须是数组。类型不对按缺失处理。
func parseDraft(raw string) (article.Article, error) {
	const op = "draft"
	payload := stripFences(raw)
	if payload == "" {
		return article.Article{}, schemaErr(op, "model returned an empty response")
	}
	if !gjson.Valid(payload) {
		return article.Article{}, schemaErr(op, "model response is not valid JSON")
	}

	doc := gjson.Parse(payload)
	if !doc.IsObject() {
		return article.Article{}, schemaErr(op, "model response is not a JSON object")
	}

	titleField := doc.Get("title")
	title := strings.TrimSpace(titleField.String())
	if titleField.Type != gjson.String || title == "" {
		return article.Article{}, schemaErr(op, "missing title")
	}

	contentField := doc.Get("content")
	content := contentField.String()
	if contentField.Type != gjson.String || strings.TrimSpace(content) == "" {
		return article.Article{}, schemaErr(op, "missing content")
	}
	body, err := normalizeBody(op, content)
	if err != nil {
		return article.Article{}, err
	}

	tagsField := doc.Get("tags")
	if !tagsField.IsArray() {
		return article.Article{}, schemaErr(op, "tags is not an array")
	}
	var tags []string
	for _, t := range tagsField.Array() {
		if t.Type != gjson.String {
			continue
		}
		tag := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t.String()), "#"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return article.Article{}, schemaErr(op, "tags array is empty")
	}

	sourcesField := doc.Get("sources")
	if sourcesField.Exists() && sourcesField.Type != gjson.Null && !sourcesField.IsArray() {
		return article.Article{}, schemaErr(op, "sources is not an array")
	}
	var sources []article.Source
	for _, s := range sourcesField.Array() {
		if !s.IsObject() {
			continue
		}
		title, url := s.Get("title"), s.Get("url")
		if title.Type != gjson.String || (url.Exists() && url.Type != gjson.String) {
			continue
		}
		src := article.Source{
			Title: strings.TrimSpace(title.String()),
			URL:   strings.TrimSpace(url.String()),
		}
		if src.Title == "" {
			continue
		}
		sources = append(sources, src)
	}

	return article.Article{
		Title:   title,
		Body:    body,
		Tags:    tags,
		Sources: sources,
	}, nil
}

// normalizeBody 清理模型输出的正文：去掉代码块围栏，Markdown 输出转为 HTML，
// 并校验标签是否闭合。
func normalizeBody(op, raw string) (string, error) {
	body := stripFences(raw)
	if body == "" {
		return "", schemaErr(op, "model returned an empty body")
	}
	if !article.HasMarkup(body) {
		html, err := mdToHTML(body)
		if err != nil {
			return "", schemaErr(op, "convert markdown body: %v", err)
		}
		body = strings.TrimSpace(html)
	}
	if err := article.CheckMarkup(body); err != nil {
		return "", schemaErr(op, "%v", err)
	}
	return body, nil
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripFences removes a surrounding ```lang ... ``` block if the model added one.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
