package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Header(2, "Options")
	w.Table([]string{"Option", "Description"}, [][]string{
		{InlineCode("--output"), "auto|text|markdown|json"},
	})

	assert.Equal(t, "## Options\n\n| Option | Description |\n| --- | --- |\n| `--output` | auto\\|text\\|markdown\\|json |\n\n", string(w.Bytes()))
}

func TestMarkdownWriter_EmptyTableOmitted(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A"}, nil)
	assert.Empty(t, w.Bytes())
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "Run the dashboard", cleanDescription("  Run   the\n dashboard. "))
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, generateCLIDocs(dir))
	assert.FileExists(t, dir+"/index.md")
	assert.FileExists(t, dir+"/run.md")
	assert.FileExists(t, dir+"/serve.md")
	assert.FileExists(t, dir+"/catalog_show.md")
	assert.FileExists(t, dir+"/query_schema.md")

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`catalog show`](/cli/catalog_show)")
	assert.Contains(t, string(index), "`SALESDASH_DATABASE`")
}

func TestDedent(t *testing.T) {
	in := "\n    salesdash run\n      --select top_customers\n"
	assert.Equal(t, "salesdash run\n  --select top_customers", dedent(in))
}
