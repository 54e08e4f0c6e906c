package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrompt_EmbeddedDefaults(t *testing.T) {
	t.Run("news summary prompt carries the news placeholder", func(t *testing.T) {
		p, err := GetPrompt("news_summary", "")
		require.NoError(t, err)
		assert.Contains(t, p.Prompt, "{{newsData}}")
		assert.NotEmpty(t, p.Description)
	})

	t.Run("welcome intro prompt carries the profile placeholder", func(t *testing.T) {
		p, err := GetPrompt("welcome_intro", "")
		require.NoError(t, err)
		assert.Contains(t, p.Prompt, "{{userProfile}}")
	})

	t.Run("unknown prompt returns an error", func(t *testing.T) {
		_, err := GetPrompt("does_not_exist", "")
		assert.Error(t, err)
	})
}

func TestGetEmailTemplate_EmbeddedDefaults(t *testing.T) {
	welcome, err := GetEmailTemplate("welcome", "")
	require.NoError(t, err)
	assert.Contains(t, welcome, "{{name}}")
	assert.Contains(t, welcome, "{{intro}}")

	summary, err := GetEmailTemplate("news_summary", "")
	require.NoError(t, err)
	assert.Contains(t, summary, "{{date}}")
	assert.Contains(t, summary, "{{newsContent}}")
}

func TestUserOverrideWins(t *testing.T) {
	dir := t.TempDir()

	override := `description = "override"
prompt = "Custom prompt with {{newsData}}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "news_summary.toml"), []byte(override), 0644))

	p, err := GetPrompt("news_summary", dir)
	require.NoError(t, err)
	assert.Equal(t, "override", p.Description)
	assert.True(t, strings.HasPrefix(p.Prompt, "Custom prompt"))

	// Templates without an override still resolve to the embedded copy.
	_, err = GetEmailTemplate("welcome", dir)
	assert.NoError(t, err)
}
