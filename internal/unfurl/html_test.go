package unfurl

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMeta_PrefersOpenGraph(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="OG Title">
		<meta name="twitter:title" content="Twitter Title">
		<title>Plain Title</title>
		<meta property="og:description" content="OG &amp; description">
		<meta property="og:image" content="https://example.com/thumb.jpg">
		<meta property="og:site_name" content="Example Site">
	</head><body></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	title, description, thumbnail, siteName := extractMeta(doc)
	assert.Equal(t, "OG Title", title)
	assert.Equal(t, "OG & description", description)
	assert.Equal(t, "https://example.com/thumb.jpg", thumbnail)
	assert.Equal(t, "Example Site", siteName)
}

func TestExtractMeta_FallsBackToTitleTag(t *testing.T) {
	html := `<html><head><title>Just a title</title></head><body></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	title, _, _, _ := extractMeta(doc)
	assert.Equal(t, "Just a title", title)
}

func TestExtractMeta_FallsBackToTwitterWhenNoOpenGraph(t *testing.T) {
	html := `<html><head><meta name="twitter:title" content="Twitter Only"></head><body></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	title, _, _, _ := extractMeta(doc)
	assert.Equal(t, "Twitter Only", title)
}
