package pages

import (
	"strings"

	"golang.org/x/net/html"
)

// DocumentTitle returns the text of the first <title> element in an HTML document,
// or an empty string when there is none or the markup cannot be parsed.
func DocumentTitle(code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(code))
	if err != nil {
		return ""
	}

	title := findElement(doc, "title")
	if title == nil {
		return ""
	}

	var builder strings.Builder
	for child := title.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			builder.WriteString(child.Data)
		}
	}

	return strings.Join(strings.Fields(builder.String()), " ")
}

func findElement(node *html.Node, name string) *html.Node {
	if node == nil {
		return nil
	}

	if node.Type == html.ElementNode && strings.EqualFold(node.Data, name) {
		return node
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}

	return nil
}
