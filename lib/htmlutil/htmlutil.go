package htmlutil

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("sigaedu.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// DirectText returns the first non-empty text node sitting directly
// under the given node, without descending into child elements.
func DirectText(node *html.Node) string {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.TextNode {
			continue
		}
		if child.Data != "" {
			return child.Data
		}
	}
	return ""
}

type SelectOption struct {
	Value string
	Label string
}

// SelectOptions reads the value/label pairs out of the <option>
// children of a <select> element.
func SelectOptions(ctx context.Context, sel *goquery.Selection) []SelectOption {
	ctx, span := tracer.Start(ctx, "SelectOptions")
	defer span.End()

	options := []SelectOption{}
	for _, n := range sel.Find("option").Nodes {
		value := ""
		for _, a := range n.Attr {
			if a.Key == "value" {
				value = a.Val
				break
			}
		}
		label := GetText(n)

		options = append(options, SelectOption{
			Value: value,
			Label: label,
		})
		span.AddEvent("option", trace.WithAttributes(
			attribute.String("value", value),
			attribute.String("label", label),
		))
	}

	return options
}
