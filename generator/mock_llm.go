package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// MockLLM 离线实现，不调用外部模型，输出结构与真实模型约定一致，便于本地调试。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch prompt.Task {
	case TaskDraft:
		return mockDraft(prompt.Topic)
	case TaskRefine:
		return prompt.Document + fmt.Sprintf("\n<p><em>(수정 반영: %s)</em></p>", html.EscapeString(prompt.Instruction)), nil
	case TaskTranslate:
		return mockTranslate(prompt.Document, prompt.Language), nil
	default:
		return "", fmt.Errorf("mock llm: unknown task %q", prompt.Task)
	}
}

func mockDraft(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	esc := html.EscapeString(topic)
	img := func(keywords string, seed int) string {
		return fmt.Sprintf(`<img src="https://image.pollinations.ai/prompt/%s?width=1280&height=720&nologo=true&seed=%d" alt="%s 관련 이미지" />`,
			url.PathEscape(keywords), seed, esc)
	}

	var sb strings.Builder
	sb.WriteString("<h2>들어가며</h2>\n")
	sb.WriteString(fmt.Sprintf("<p>최근 <strong>%s</strong>에 대한 관심이 빠르게 높아지고 있습니다.</p>\n", esc))
	sb.WriteString(img(topic+" city", 4829) + "\n")
	sb.WriteString("<h2>국내 뉴스 종합</h2>\n")
	sb.WriteString(fmt.Sprintf("<p>국내 언론은 %s의 산업적 파급력에 주목하고 있습니다.</p>\n", esc))
	sb.WriteString("<h2>해외 사례/트렌드 (Global Case Studies)</h2>\n")
	sb.WriteString("<ul><li>미국: 빅테크 중심의 투자 확대</li><li>유럽: 규제 프레임워크 정비</li><li>일본: 제조업 현장 적용</li></ul>\n")
	sb.WriteString(img(topic+" global office", 1733) + "\n")
	sb.WriteString("<h2>심층 분석</h2>\n")
	sb.WriteString("<blockquote>국내외 흐름을 비교하면 기회와 과제가 동시에 보입니다.</blockquote>\n")
	sb.WriteString(img(topic+" analysis chart", 9021) + "\n")
	sb.WriteString("<h2>마치며</h2>\n")
	sb.WriteString(fmt.Sprintf("<p>%s의 변화는 앞으로도 계속될 것입니다.</p>", esc))

	tagBase := strings.ReplaceAll(topic, " ", "")
	payload := map[string]any{
		"title":   fmt.Sprintf("%s, 지금 알아야 할 국내외 핵심 동향", topic),
		"content": sb.String(),
		"tags":    []string{tagBase, "뉴스", "트렌드", "해외사례", "분석"},
		"sources": []map[string]string{
			{"title": fmt.Sprintf("%s 시장, 올해 성장세 지속", topic), "url": "https://news.naver.com/"},
			{"title": fmt.Sprintf("정부, %s 지원 정책 발표", topic), "url": "https://news.naver.com/"},
			{"title": fmt.Sprintf("전문가들이 본 %s의 미래", topic), "url": "https://news.naver.com/"},
			{"title": fmt.Sprintf("How %s is reshaping industries", topic), "url": "https://www.bloomberg.com/"},
			{"title": fmt.Sprintf("The global race in %s", topic), "url": "https://techcrunch.com/"},
		},
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// mockTranslate 只改写文本节点，标签与属性按原样输出。
func mockTranslate(body, language string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return sb.String()
		}
		raw := string(z.Raw())
		if tt == html.TextToken && strings.TrimSpace(raw) != "" {
			sb.WriteString("[" + language + "] ")
		}
		sb.WriteString(raw)
	}
}
