package dom

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"elpais-crawler/pkg/types"
)

const opinionFixture = `<!doctype html>
<html lang="es-ES">
<head><title>Opinión | EL PAÍS</title><script>var x = "hidden";</script></head>
<body>
<nav class="cs_m"><a href="/opinion/">Opinión</a> <a href="/deportes/">Deportes</a></nav>
<article>
  <h2 class="c_t"><a href="/a1">La crisis   del <b>agua</b></a></h2>
  <p class="c_d">Primer   párrafo<br>segunda línea</p>
  <img src="https://cdn.example/a1.jpg">
</article>
<article>
  <h2 class="c_t">Sin imagen</h2>
</article>
</body>
</html>`

func TestQueryAllAndFind(t *testing.T) {
	ctx := context.Background()
	doc, err := ParseString(opinionFixture, "https://elpais.com/opinion/")
	require.NoError(t, err)

	assert.Equal(t, "https://elpais.com/opinion/", doc.URL())
	assert.Equal(t, "es-ES", doc.Lang())
	assert.Equal(t, "Opinión | EL PAÍS", doc.Title())

	articles, err := doc.QueryAll(ctx, "article", 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	title, err := articles[0].Find(ctx, "h2.c_t")
	require.NoError(t, err)
	text, err := title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "La crisis del agua", text)

	content, err := articles[0].Find(ctx, "p.c_d")
	require.NoError(t, err)
	text, err = content.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Primer párrafo\nsegunda línea", text)

	imgs, err := articles[0].FindAll(ctx, "img")
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	src, ok, err := imgs[0].Attr(ctx, "src")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example/a1.jpg", src)

	_, ok, err = imgs[0].Attr(ctx, "data-src")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = articles[1].Find(ctx, "p.c_d")
	assert.ErrorIs(t, err, types.ErrNoMatch)

	imgs, err = articles[1].FindAll(ctx, "img")
	require.NoError(t, err)
	assert.Empty(t, imgs)

	assert.NoError(t, articles[1].ScrollIntoView(ctx))
}

func TestQueryAllEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	doc, err := ParseString("<html><body><p>nothing here</p></body></html>", "https://example.com/")
	require.NoError(t, err)

	found, err := doc.QueryAll(ctx, "article", 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = doc.QueryAll(ctx, "article[", 0)
	assert.Error(t, err)

	_, err = doc.QueryAll(ctx, "  ", 0)
	assert.Error(t, err)
}

func TestQueryAllHonoursCancelledContext(t *testing.T) {
	doc, err := ParseString(opinionFixture, "https://elpais.com/opinion/")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = doc.QueryAll(ctx, "article", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinks(t *testing.T) {
	doc, err := ParseString(opinionFixture, "https://elpais.com/")
	require.NoError(t, err)

	links := doc.Links("nav.cs_m a[href*='/opinion']")
	require.Len(t, links, 1)
	assert.Equal(t, Link{Href: "/opinion/", Text: "Opinión"}, links[0])

	all := doc.Links("")
	assert.Len(t, all, 3)
}

func TestVisibleText(t *testing.T) {
	cases := map[string]struct {
		markup string
		want   string
	}{
		"inline elements join without space": {
			markup: "<p>El<b>País</b></p>",
			want:   "ElPaís",
		},
		"whitespace between inline elements": {
			markup: "<p>El <b>País</b>\n  diario</p>",
			want:   "El País diario",
		},
		"blocks produce lines": {
			markup: "<div><p>uno</p><p>dos</p></div>",
			want:   "uno\ndos",
		},
		"hidden content is skipped": {
			markup: "<div>visible<script>nope()</script><span hidden>secret</span><style>p{}</style></div>",
			want:   "visible",
		},
		"table cells are spaced": {
			markup: "<table><tr><td>a</td><td>b</td></tr></table>",
			want:   "a b",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			node, err := html.Parse(strings.NewReader(tc.markup))
			require.NoError(t, err)
			assert.Equal(t, tc.want, VisibleText(node))
		})
	}
}
