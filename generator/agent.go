package generator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"news_blog_gen/article"
)

// Agent 是生成网关：首稿、修订、翻译三类请求都经过这里。
// Agent 不保存任何会话状态，每次调用相互独立。
type Agent struct {
	llm        LLMClient
	maxRetries int
	backoff    time.Duration
	log        logrus.FieldLogger
}

type AgentOption func(*Agent)

// WithMaxRetries sets how many times a service failure is retried.
func WithMaxRetries(n int) AgentOption {
	return func(a *Agent) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// WithBackoff sets the base wait between retries; attempt n waits n*d.
func WithBackoff(d time.Duration) AgentOption {
	return func(a *Agent) { a.backoff = d }
}

func WithLogger(l logrus.FieldLogger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:        llm,
		maxRetries: 1,
		backoff:    500 * time.Millisecond,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "generator")
	return a, nil
}

// Draft 根据 Brief 生成首稿。
func (a *Agent) Draft(ctx context.Context, brief Brief) (article.Article, error) {
	if err := brief.Validate(); err != nil {
		return article.Article{}, err
	}
	raw, err := a.complete(ctx, BuildDraftPrompt(brief))
	if err != nil {
		return article.Article{}, err
	}
	return parseDraft(raw)
}

// Refine 按用户指令改写正文，返回完整的新正文。
func (a *Agent) Refine(ctx context.Context, body, instruction string) (string, error) {
	raw, err := a.complete(ctx, BuildRefinePrompt(body, instruction))
	if err != nil {
		return "", err
	}
	return normalizeBody(string(TaskRefine), raw)
}

// Translate 将正文翻译为目标语言，标签与属性保持不变。
func (a *Agent) Translate(ctx context.Context, body, language string) (string, error) {
	raw, err := a.complete(ctx, BuildTranslatePrompt(body, language))
	if err != nil {
		return "", err
	}
	return normalizeBody(string(TaskTranslate), raw)
}

// complete calls the model, retrying service failures. Cancellation is
// returned unchanged so callers can tell it apart from a failure; an expired
// deadline counts as a service failure.
func (a *Agent) complete(ctx context.Context, prompt Prompt) (string, error) {
	op := string(prompt.Task)
	for attempt := 0; ; attempt++ {
		raw, err := a.llm.Complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return "", contextErr(op, ctx.Err())
		}
		if errors.Is(err, ErrEmptyChoices) {
			return "", schemaErr(op, "%v", err)
		}
		if attempt >= a.maxRetries {
			a.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempts": attempt + 1}).Error("generation failed")
			return "", serviceErr(op, err)
		}

		wait := a.backoff * time.Duration(attempt+1)
		a.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt + 1, "wait": wait.String()}).Warn("generation failed, retrying")
		select {
		case <-ctx.Done():
			return "", contextErr(op, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func contextErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return serviceErr(op, err)
	}
	return err
}
