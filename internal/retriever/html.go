package retriever

import (
	"bytes"
	"fmt"
	"io"

	"code.sajari.com/docconv/v2"
	"github.com/PuerkitoBio/goquery"
)

// invisibleSelector matches elements whose text never renders.
const invisibleSelector = "head, script, style, noscript, template, svg, iframe"

// blockSelector matches elements that start a new visual line.
const blockSelector = "p, div, section, article, header, footer, nav, aside, main, " +
	"h1, h2, h3, h4, h5, h6, li, dt, dd, tr, td, th, pre, blockquote, " +
	"figcaption, form, table, ul, ol, dl, address, label, option"

// VisibleText returns the rendered text of an HTML page with one line per
// block element. Lines are not cleaned.
func VisibleText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find(invisibleSelector).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
		s.AppendHtml("\n")
	})

	if body := doc.Find("body"); body.Length() > 0 {
		return body.Text(), nil
	}

	return doc.Text(), nil
}

// ReadableText extracts the main content of an HTML page with docconv's
// readability filter, dropping navigation and other boilerplate blocks.
func ReadableText(body []byte) (string, error) {
	text, _, err := docconv.ConvertHTML(bytes.NewReader(body), true)
	if err != nil {
		return "", fmt.Errorf("readability conversion: %w", err)
	}

	return text, nil
}
