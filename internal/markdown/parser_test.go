package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := NewParser()

	t.Run("renders markdown", func(t *testing.T) {
		html, err := p.Parse([]byte("# Salmo 23\n\nO Senhor é o meu **pastor**."))
		require.NoError(t, err)
		assert.Contains(t, string(html), "<h1")
		assert.Contains(t, string(html), "<strong>pastor</strong>")
	})

	t.Run("drops raw html", func(t *testing.T) {
		html, err := p.Parse([]byte("antes <script>alert(1)</script> depois"))
		require.NoError(t, err)
		assert.NotContains(t, string(html), "<script>")
	})
}

func TestParseDocument(t *testing.T) {
	p := NewParser()
	source := "---\ntitle: Culto de Louvor\nfeatured: true\n---\n\nCorpo do **post**.\n"

	doc, err := p.ParseDocument([]byte(source))
	require.NoError(t, err)
	assert.Equal(t, "Culto de Louvor", doc.Meta["title"])
	assert.Equal(t, true, doc.Meta["featured"])
	assert.Equal(t, "Corpo do **post**.\n", doc.Body)
	assert.Contains(t, doc.HTML, "<strong>post</strong>")
	assert.NotContains(t, doc.HTML, "title:")

	plain, err := p.ParseDocument([]byte("Sem frontmatter"))
	require.NoError(t, err)
	assert.Empty(t, plain.Meta)
	assert.Equal(t, "Sem frontmatter", plain.Body)

	assert.Equal(t, "Culto de Louvor", p.ExtractFrontmatter([]byte(source))["title"])
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, 1, ReadTime(""))
	assert.Equal(t, 1, ReadTime("uma palavra"))
	assert.Equal(t, 1, ReadTime(strings.Repeat("palavra ", 200)))
	assert.Equal(t, 2, ReadTime(strings.Repeat("palavra ", 201)))
	assert.Equal(t, 5, ReadTime(strings.Repeat("palavra\n", 1000)))
}
