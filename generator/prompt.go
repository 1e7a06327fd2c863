package generator

import (
	"fmt"
	"strings"
)

// Task 标识一次请求的类型。
type Task string

const (
	TaskDraft     Task = "draft"
	TaskRefine    Task = "refine"
	TaskTranslate Task = "translate"
)

// Prompt 表示发送给 LLM 的消息集合。
// Topic/Document/Instruction/Language 保留原始输入，供 MockLLM 等离线实现使用。
type Prompt struct {
	Task   Task
	System string
	User   string
	// JSON asks the client for a JSON-object response.
	JSON bool

	Topic       string
	Document    string
	Instruction string
	Language    string
}

const imageFormat = `<img src="https://image.pollinations.ai/prompt/{english_keywords}?width=1280&height=720&nologo=true&seed={random_seed}" alt="{korean_alt_text}" />`

// BuildDraftPrompt 生成首稿提示词，要求模型按固定 JSON 结构输出。
func BuildDraftPrompt(b Brief) Prompt {
	var sb strings.Builder
	sb.WriteString("Task: Create a high-quality blog post based on the following parameters:\n")
	sb.WriteString(fmt.Sprintf("- Keywords/Topic: %q\n", b.Keywords))
	sb.WriteString(fmt.Sprintf("- Timeframe Context: %q\n", b.Period.Label()))
	sb.WriteString(fmt.Sprintf("- Tone/Style: %q\n", b.Tone.Label()))
	sb.WriteString(fmt.Sprintf("- Target Length: %q\n\n", b.Length.Label()))
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. Title: Catchy, SEO-optimized for Naver Search.\n")
	sb.WriteString("2. Content:\n")
	sb.WriteString("   - Write in fluent Korean.\n")
	sb.WriteString("   - Structure with HTML tags (<h2>, <p>, <ul>, <strong>, <blockquote>).\n")
	sb.WriteString("   - Do not output a full HTML document (no <html> or <body> tags), just the inner content.\n")
	sb.WriteString("   - Insert 2-3 high-definition images using exactly this format:\n")
	sb.WriteString("     " + imageFormat + "\n")
	sb.WriteString("     {english_keywords}: 3-5 concrete English keywords separated by \"%20\"; {random_seed}: a random integer; {korean_alt_text}: descriptive Korean alt text.\n")
	sb.WriteString("   - Include a dedicated \"Global Case Studies\" (해외 사례/트렌드) section comparing the topic with the US, Europe, or Japan.\n")
	sb.WriteString("   - Flow: Introduction -> Domestic News Synthesis -> Global Case Studies -> In-depth Analysis -> Conclusion.\n")
	sb.WriteString("3. Tags: exactly 5 relevant hashtags.\n")
	sb.WriteString("4. Sources: 2-3 realistic Naver News source titles (domestic) and 2 reputable global sources (e.g. Bloomberg, TechCrunch, BBC).\n\n")
	sb.WriteString(`Output a single JSON object: {"title": string, "content": string, "tags": [string], "sources": [{"title": string, "url": string}]}`)

	return Prompt{
		Task:   TaskDraft,
		System: "You are an expert content writer for a Korean audience, specializing in synthesizing news from the Naver ecosystem and analyzing global trends. Respond with JSON only.",
		User:   sb.String(),
		JSON:   true,
		Topic:  b.Keywords,
	}
}

// BuildRefinePrompt 生成修订提示词，必须原样保留所有图片标签。
func BuildRefinePrompt(body, instruction string) Prompt {
	var sb strings.Builder
	sb.WriteString("Current Blog Content (HTML):\n")
	sb.WriteString(body)
	sb.WriteString(fmt.Sprintf("\n\nUser Instruction: %q\n\n", instruction))
	sb.WriteString("Task: Rewrite the content to satisfy the user's instruction.\n")
	sb.WriteString("- Keep the HTML structure valid.\n")
	sb.WriteString("- CRITICAL: Do NOT remove or modify any <img src=\"...\"> tags. Keep them exactly where they are.\n")
	sb.WriteString("- Return ONLY the updated HTML content string.")

	return Prompt{
		Task:        TaskRefine,
		System:      "You are an AI editor assistant. Output HTML only, without explanations or code fences.",
		User:        sb.String(),
		Document:    body,
		Instruction: instruction,
	}
}

// BuildTranslatePrompt 生成翻译提示词，只翻译可见文本。
func BuildTranslatePrompt(body, language string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Task: Translate the following HTML blog content into %q.\n\n", language))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Preserve ALL HTML tags, classes, and structure exactly.\n")
	sb.WriteString("- Do NOT translate attributes like 'src', 'class', 'id'.\n")
	sb.WriteString("- Do NOT translate English text inside 'src' URLs.\n")
	sb.WriteString("- Only translate the visible human-readable text.\n")
	sb.WriteString("- Return ONLY the translated HTML string.\n\n")
	sb.WriteString("Content:\n")
	sb.WriteString(body)

	return Prompt{
		Task:     TaskTranslate,
		System:   "You are a professional translator. Output HTML only, without explanations or code fences.",
		User:     sb.String(),
		Document: body,
		Language: language,
	}
}
