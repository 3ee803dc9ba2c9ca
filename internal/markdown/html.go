package markdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

var (
	residualTags = regexp.MustCompile(`<[^>]+>`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

func newHTMLConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// ConvertHTML converts server-rendered HTML (the renderedFields expansion)
// to markdown. JIRA's renderer leaks macros and fragments the converter
// cannot place; residual tags are stripped rather than left inline.
func (c *Converter) ConvertHTML(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	md, err := c.html.ConvertString(html)
	if err != nil {
		return "", err
	}
	md = residualTags.ReplaceAllString(md, "")
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md), nil
}
