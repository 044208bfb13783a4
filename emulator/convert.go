package emulator

import (
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// minContentLength is the minimum readability text length (in characters)
// accepted as the page's main content.
const minContentLength = 50

// noiseSelector lists elements that never carry readable content.
const noiseSelector = "script, style, noscript, iframe, svg, template"

// Converter turns rendered HTML into Markdown. It is safe for concurrent use.
type Converter struct {
	md *converter.Converter
}

func NewConverter() *Converter {
	return &Converter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Convert strips noise, extracts the main content and renders Markdown with
// links resolved against pageURL. A "# Title" heading is prepended when the
// body does not start with one.
func (c *Converter) Convert(rawHTML, pageURL string) (string, error) {
	cleaned, err := stripNoise(rawHTML)
	if err != nil {
		return "", fmt.Errorf("emulator: parse html: %w", err)
	}

	title := extractTitle(cleaned)
	content := cleaned
	if article, ok := extractMain(cleaned, pageURL); ok {
		content = article.Content
		if article.Title != "" {
			title = article.Title
		}
	}

	md, err := c.md.ConvertString(content, converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("emulator: markdown conversion: %w", err)
	}
	md = strings.TrimSpace(md)

	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md + "\n", nil
}

func stripNoise(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	doc.Find(noiseSelector).Remove()
	return doc.Html()
}

// extractMain runs readability; ok is false when it fails or finds too little text.
func extractMain(rawHTML, pageURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("emulator: readability failed, using full document", "url", pageURL, "error", err)
		return readability.Article{}, false
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("emulator: readability content too short, using full document",
			"url", pageURL, "length", len(article.TextContent))
		return readability.Article{}, false
	}
	return article, true
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
