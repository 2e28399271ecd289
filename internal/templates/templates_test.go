package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTemplateEmbeddedComposer(t *testing.T) {
	tmpl, err := GetTemplate("composer", "")
	require.NoError(t, err)

	assert.Equal(t, TemplateTypeComposer, tmpl.Type)
	assert.Contains(t, tmpl.System, "%s")
	assert.Equal(t, 2, strings.Count(tmpl.User, "%s"))
	assert.Contains(t, tmpl.NoMatch, "%q")
	assert.Contains(t, tmpl.LowConfidence, "%q")
}

func TestGetTemplateUserOverrideWins(t *testing.T) {
	dir := t.TempDir()
	override := `type = "composer"
system = "You speak for %s in pirate voice."
user = "Context: %s Question: %s"
no_match = "Nothing found for %q."
low_confidence = "Not sure about %q."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.toml"), []byte(override), 0644))

	tmpl, err := GetTemplate("composer", dir)
	require.NoError(t, err)
	assert.Equal(t, "You speak for %s in pirate voice.", tmpl.System)
}

func TestGetTemplateOverrideDirWithoutFileFallsBack(t *testing.T) {
	tmpl, err := GetTemplate("composer", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, tmpl.System, "support assistant")
}

func TestGetTemplateInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	override := `type = "composer"
system = "You speak for %s."
user = "Context: %s Question: %s"
no_match = "Nothing found for %q."
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.toml"), []byte(override), 0644))

	_, err := GetTemplate("composer", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low_confidence")
}

func TestGetTemplateUnknownName(t *testing.T) {
	_, err := GetTemplate("does-not-exist", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListEmbeddedTemplates(t *testing.T) {
	names, err := ListEmbeddedTemplates()
	require.NoError(t, err)
	assert.Contains(t, names, "composer")
}

func TestTemplateValidate(t *testing.T) {
	valid := Template{
		Type:          TemplateTypeComposer,
		System:        "s",
		User:          "u",
		NoMatch:       "n",
		LowConfidence: "l",
	}

	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr string
	}{
		{"valid", func(*Template) {}, ""},
		{"missing system", func(tm *Template) { tm.System = "" }, "system"},
		{"missing user", func(tm *Template) { tm.User = "" }, "user"},
		{"missing no_match", func(tm *Template) { tm.NoMatch = "" }, "no_match"},
		{"missing low_confidence", func(tm *Template) { tm.LowConfidence = "" }, "low_confidence"},
		{"unknown type", func(tm *Template) { tm.Type = "summary" }, "unknown template type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := valid
			tt.mutate(&tmpl)
			err := tmpl.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
