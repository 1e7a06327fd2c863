package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_blog_gen/article"
	"news_blog_gen/generator"
	"news_blog_gen/revision"
	"news_blog_gen/viewstate"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestApp(t *testing.T, gw revision.Gateway) *App {
	t.Helper()
	orch := revision.New(gw, revision.WithLogger(quietLogger()), revision.WithProgressInterval(0))
	t.Cleanup(orch.Close)
	return NewApp(context.Background(), orch, WithLogger(quietLogger()), WithExportDir(t.TempDir()))
}

func mockAgent(t *testing.T) revision.Gateway {
	t.Helper()
	agent, err := generator.NewAgent(generator.MockLLM{}, generator.WithLogger(quietLogger()))
	require.NoError(t, err)
	return agent
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// send feeds msg through Update and returns its command without running it.
func send(t *testing.T, a *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := a.Update(msg)
	return cmd
}

// settle runs a gateway command synchronously and feeds its result back.
func settle(t *testing.T, a *App, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	a.Update(cmd())
}

func draftWithMock(t *testing.T, a *App) {
	t.Helper()
	send(t, a, key(tea.KeyEnter))
	require.Equal(t, viewstate.ScreenWizard, a.view.Screen)
	send(t, a, runes("AI 기술"))
	settle(t, a, send(t, a, key(tea.KeyEnter)))
	require.NoError(t, a.err)
	require.Equal(t, viewstate.ScreenEditor, a.view.Screen)
}

func TestWizardCyclesChoices(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	send(t, a, key(tea.KeyEnter))

	send(t, a, key(tea.KeyDown))
	assert.Equal(t, fieldPeriod, a.focus)
	send(t, a, key(tea.KeyRight))
	assert.Equal(t, generator.PeriodMonth, a.brief().Period)
	send(t, a, key(tea.KeyRight))
	assert.Equal(t, generator.PeriodDay, a.brief().Period)

	send(t, a, key(tea.KeyDown))
	send(t, a, key(tea.KeyLeft))
	assert.Equal(t, generator.ToneEnthusiastic, a.brief().Tone)

	send(t, a, key(tea.KeyUp))
	send(t, a, key(tea.KeyUp))
	assert.Equal(t, fieldKeywords, a.focus)
}

func TestWizardRejectsEmptyKeywords(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	send(t, a, key(tea.KeyEnter))

	cmd := send(t, a, key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.ErrorIs(t, a.err, generator.ErrInvalidBrief)
	assert.Equal(t, viewstate.ScreenWizard, a.view.Screen)
}

func TestDraftFailureStaysInWizard(t *testing.T) {
	gw := &stubGateway{draftErr: &generator.GenerationError{Op: "draft", Reason: generator.ReasonService, Err: errors.New("down")}}
	a := newTestApp(t, gw)
	send(t, a, key(tea.KeyEnter))
	send(t, a, runes("반도체"))

	settle(t, a, send(t, a, key(tea.KeyEnter)))
	assert.Equal(t, viewstate.ScreenWizard, a.view.Screen)
	assert.ErrorIs(t, a.err, generator.ErrService)
	assert.Equal(t, "반도체", a.keywords.Value())
	assert.False(t, a.busy)
}

func TestEditorFlow(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	draftWithMock(t, a)

	send(t, a, runes("더 짧게"))
	settle(t, a, send(t, a, key(tea.KeyEnter)))
	require.NoError(t, a.err)
	snap, _ := a.orch.Document().Article()
	assert.Contains(t, snap.Body, "더 짧게")
	assert.Empty(t, a.instruction.Value())

	send(t, a, key(tea.KeyCtrlZ))
	require.NoError(t, a.err)
	snap, _ = a.orch.Document().Article()
	assert.NotContains(t, snap.Body, "더 짧게")

	send(t, a, key(tea.KeyCtrlL))
	assert.True(t, a.view.LangMenuOpen)
	settle(t, a, send(t, a, runes("2")))
	assert.False(t, a.view.LangMenuOpen)
	require.NoError(t, a.err)
	snap, _ = a.orch.Document().Article()
	assert.Contains(t, snap.Body, "[Korean] ")
}

func TestEditorToggles(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	draftWithMock(t, a)

	send(t, a, key(tea.KeyTab))
	assert.Equal(t, viewstate.TabPreview, a.view.Tab)
	snap, _ := a.orch.Document().Article()
	preview := previewText(snap, 80)
	assert.Contains(t, preview, "Sources")
	assert.NotContains(t, preview, "<p>")

	sidebar := a.view.SidebarOpen
	send(t, a, key(tea.KeyCtrlB))
	assert.Equal(t, !sidebar, a.view.SidebarOpen)

	send(t, a, key(tea.KeyCtrlE))
	assert.True(t, a.view.ExportMenuOpen)
	send(t, a, key(tea.KeyEsc))
	assert.False(t, a.view.ExportMenuOpen)

	a.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	assert.False(t, a.view.SidebarOpen)
}

func TestExportFromMenu(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	draftWithMock(t, a)

	send(t, a, key(tea.KeyCtrlE))
	settle(t, a, send(t, a, runes("2")))
	require.NoError(t, a.err)
	require.True(t, strings.HasPrefix(a.status, "Saved to "))

	path := strings.TrimPrefix(a.status, "Saved to ")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
}

func TestUndoWithoutEditReportsError(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	draftWithMock(t, a)

	send(t, a, key(tea.KeyCtrlZ))
	assert.ErrorIs(t, a.err, revision.ErrNothingToUndo)
}

func TestQuitClosesSession(t *testing.T) {
	a := newTestApp(t, mockAgent(t))
	cmd := send(t, a, key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, err := a.orch.SubmitConfig(context.Background(), generator.Brief{
		Keywords: "x", Period: generator.PeriodDay, Tone: generator.ToneCasual, Length: generator.LengthShort,
	})
	assert.ErrorIs(t, err, revision.ErrClosed)
}

type stubGateway struct {
	draftErr error
}

func (g *stubGateway) Draft(context.Context, generator.Brief) (article.Article, error) {
	return article.Article{}, g.draftErr
}

func (g *stubGateway) Refine(_ context.Context, body, _ string) (string, error) {
	return body, nil
}

func (g *stubGateway) Translate(_ context.Context, body, _ string) (string, error) {
	return body, nil
}
