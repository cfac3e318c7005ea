package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/answer"
	"plantprofit/internal/domain"
)

type fakeAdvisor struct {
	result answer.Result
	err    error
	topK   int
}

func (f *fakeAdvisor) Query(_ context.Context, _ string, topK int) (answer.Result, error) {
	f.topK = topK
	return f.result, f.err
}

func (f *fakeAdvisor) Document(id string) (domain.Document, bool) {
	if id != "annual_corn" {
		return domain.Document{}, false
	}
	return domain.Document{ID: id, Text: `{"avgPrice":5.50,"avgYield":180,"costs":950,"name":"Corn"}`}, true
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestAskFlow(t *testing.T) {
	adv := &fakeAdvisor{result: answer.Result{
		Answer:  "Plant corn. yield: 180 tons/acre",
		Context: []domain.ScoredID{{ID: "annual_corn", Score: 0.8}, {ID: "annual_unknown", Score: 0.1}},
	}}
	m := sized(t, New(adv, "six crops", 0))
	assert.Contains(t, m.View(), "PlantProfit Advisor")
	assert.Contains(t, m.View(), "No answer yet.")

	m.input.SetValue("what should I plant?")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Equal(t, "Thinking...", m.status)

	msg := cmd()
	assert.Equal(t, defaultTopK, adv.topK)
	next, _ = m.Update(msg)
	m = next.(Model)
	assert.False(t, m.pending)
	assert.Equal(t, 3, m.pages())
	assert.Contains(t, m.renderCurrent(), "Plant corn. yield: 180 tons/acre")
	assert.Contains(t, m.renderCurrent(), "annual_corn (0.800)")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderCurrent(), "Source 1/2")
	assert.Contains(t, m.renderCurrent(), "Corn averages a yield of 180")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderCurrent(), "not in the local catalog")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestAskError(t *testing.T) {
	m := sized(t, New(&fakeAdvisor{}, "", 5))
	next, _ := m.Update(answerMsg{query: "q", err: errors.New("service unavailable")})
	m = next.(Model)
	assert.Equal(t, "Error: service unavailable", m.status)
	assert.Nil(t, m.result)
}

func TestQuitKeys(t *testing.T) {
	m := New(&fakeAdvisor{}, "", 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Corn is cheap to grow. Almonds need three years. Cotton likes heat."
	out := highlightBestSentence(text, "how long do almonds need")
	assert.Contains(t, out, "Almonds need three years.")
	assert.Contains(t, out, "Corn is cheap to grow.")
	assert.Equal(t, text, highlightBestSentence(text, ""))
}
