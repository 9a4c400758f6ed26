package title

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractTitle returns the text of the first <title> element of an HTML
// document with whitespace collapsed. It returns "" when the document has
// no title. Titles inside inline SVG are ignored.
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	node := findTitle(doc)
	if node == nil {
		return "", nil
	}

	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

// findTitle walks the tree depth first and returns the first HTML title
// element.
func findTitle(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.Namespace == "" {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findTitle(child); found != nil {
			return found
		}
	}
	return nil
}
