package bundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteulation/backend/internal/models"
)

func file(name, content string) models.ProjectFile {
	return models.ProjectFile{Name: name, Content: content}
}

func TestBundle_EmptyProject(t *testing.T) {
	_, err := Bundle(nil)
	require.ErrorIs(t, err, ErrEmptyProject)

	_, err = Bundle([]models.ProjectFile{})
	require.ErrorIs(t, err, ErrEmptyProject)
}

func TestBundle_InlinesStylesAndScripts(t *testing.T) {
	files := []models.ProjectFile{
		file("index.html", `<link rel=stylesheet href=s.css><script src=a.js></script>`),
		file("s.css", "body{color:red}"),
		file("a.js", "console.log(1)"),
	}

	out, err := Bundle(files)
	require.NoError(t, err)

	assert.Contains(t, out, "<style>\nbody{color:red}\n</style>")
	assert.Contains(t, out, "<script>\nconsole.log(1)\n</script>")
	assert.NotContains(t, out, "<link")
	assert.NotContains(t, out, "src=")
}

func TestBundle_SingleFilePassThrough(t *testing.T) {
	out, err := Bundle([]models.ProjectFile{
		file("index.html", `<h1>hello</h1>`),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>hello</h1>")
}

func TestBundle_MissingAssetLeftUntouched(t *testing.T) {
	out, err := Bundle([]models.ProjectFile{
		file("index.html", `<link rel="stylesheet" href="missing.css">`),
	})
	require.NoError(t, err)
	assert.Contains(t, out, `<link rel="stylesheet" href="missing.css"`)
}

func TestBundle_CaseInsensitiveResolution(t *testing.T) {
	files := []models.ProjectFile{
		file("INDEX.HTML", `<link rel="stylesheet" href="Style.CSS">`),
		file("style.css", "p{margin:0}"),
	}

	out, err := Bundle(files)
	require.NoError(t, err)
	assert.Contains(t, out, "<style>\np{margin:0}\n</style>")
}

func TestBundle_ExternalScriptUntouched(t *testing.T) {
	const cdn = "https://cdn.example.com/a.js"
	files := []models.ProjectFile{
		file("index.html", `<script src="`+cdn+`"></script><script src="//proto.example.com/b.js"></script>`),
	}

	out, err := Bundle(files)
	require.NoError(t, err)
	assert.Contains(t, out, cdn)
	assert.Contains(t, out, "//proto.example.com/b.js")
}

func TestBundle_InlineScriptUntouched(t *testing.T) {
	files := []models.ProjectFile{
		file("index.html", `<script>var x = 1;</script>`),
		file("a.js", "console.log(1)"),
	}

	out, err := Bundle(files)
	require.NoError(t, err)
	assert.Contains(t, out, "var x = 1;")
	assert.NotContains(t, out, "console.log(1)")
}

func TestBundle_NoIndexUsesFirstFile(t *testing.T) {
	files := []models.ProjectFile{
		file("main.html", `<link rel="stylesheet" href="a.css"><p>main</p>`),
		file("a.css", "h1{font-weight:bold}"),
		file("other.html", `<p>other</p>`),
	}

	out, err := Bundle(files)
	require.NoError(t, err)
	assert.Contains(t, out, "<p>main</p>")
	assert.NotContains(t, out, "<p>other</p>")
	assert.Contains(t, out, "<style>\nh1{font-weight:bold}\n</style>")
}

func TestBundle_Deterministic(t *testing.T) {
	files := []models.ProjectFile{
		file("index.html", `<link rel="stylesheet" href="s.css"><script src="a.js"></script><script src="https://cdn.example.com/x.js"></script>`),
		file("s.css", "body{background:#fff}"),
		file("a.js", "let n = 2;"),
	}

	first, err := Bundle(files)
	require.NoError(t, err)
	second, err := Bundle(files)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBundle_MultilineAttributesSurvive(t *testing.T) {
	files := []models.ProjectFile{
		file("index.html", "<link\n  rel=\"stylesheet\"\n  href=\"s.css\">"),
		file("s.css", "div{padding:1px}"),
	}

	out, err := Bundle(files)
	require.NoError(t, err)
	assert.Contains(t, out, "<style>\ndiv{padding:1px}\n</style>")
	assert.False(t, strings.Contains(out, "<link"), "link element should be replaced")
}
