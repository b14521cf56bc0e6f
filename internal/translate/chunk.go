package translate

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockTags are the top-level elements the chunker is allowed to break a
// fragment on without splitting an element's own markup across chunks.
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Hr: true, atom.Section: true, atom.Article: true,
}

// splitIntoChunks splits an HTML fragment into chunks of at most maxChars,
// breaking only at top-level block-element boundaries so that no tag is ever
// split across two chunks. A single block element larger than maxChars
// becomes its own oversized chunk rather than being torn in half.
func splitIntoChunks(fragment string, maxChars int) ([]string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}

	// Consecutive non-block top-level nodes (text, inline elements) stay in
	// one piece, so a chunk boundary only ever falls next to a block element.
	var pieces []string
	prevInline := false
	for _, n := range nodes {
		inline := !(n.Type == html.ElementNode && blockTags[n.DataAtom])
		if inline && prevInline {
			pieces[len(pieces)-1] += renderNode(n)
		} else {
			pieces = append(pieces, renderNode(n))
		}
		prevInline = inline
	}

	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		chunks = []string{fragment}
	}
	return chunks, nil
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}
