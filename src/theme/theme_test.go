package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/elee1766/gemchat/src/history"
	"github.com/stretchr/testify/assert"
)

func TestRoleStyles(t *testing.T) {
	s := NewStyles(Default)

	assert.Equal(t, Default.Primary, s.Role(history.RoleUser).GetForeground())
	assert.Equal(t, Default.Secondary, s.Role(history.RoleBot).GetForeground())
	assert.Equal(t, Default.TextMuted, s.Role(history.Role("system")).GetForeground())
}

func TestSetPalette(t *testing.T) {
	defer SetPalette(Default)

	p := Default
	p.Primary = lipgloss.Color("#123456")
	SetPalette(p)

	assert.Equal(t, lipgloss.Color("#123456"), Current().Primary)
	assert.Equal(t, lipgloss.Color("#123456"), NewStyles(Current()).Title.GetForeground())
}
