package htmlutil

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// CleanText is the visible text of node with whitespace collapsed.
func CleanText(node *html.Node) string {
	text := GetText(node)
	text = removeNonPrintable(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}

func spanAttr(sel *goquery.Selection, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(sel.AttrOr(name, "1")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

type pendingCell struct {
	text      string
	remaining int
}

// ParseTable flattens an html table into rows of cell text. Cells spanning
// several columns or rows are repeated in every position they cover, header
// cells are treated like any other cell.
func ParseTable(table *goquery.Selection) [][]string {
	var rows [][]string
	// column index -> cell carried down by a rowspan
	pending := map[int]*pendingCell{}

	takePending := func(col int, row *[]string) bool {
		p, ok := pending[col]
		if !ok {
			return false
		}
		*row = append(*row, p.text)
		p.remaining--
		if p.remaining == 0 {
			delete(pending, col)
		}
		return true
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// skip rows of nested tables
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}

		row := []string{}
		col := 0
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			for takePending(col, &row) {
				col++
			}

			text := ""
			if len(cell.Nodes) > 0 {
				text = CleanText(cell.Nodes[0])
			}
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for i := 0; i < colspan; i++ {
				row = append(row, text)
				if rowspan > 1 {
					pending[col] = &pendingCell{text: text, remaining: rowspan - 1}
				}
				col++
			}
		})

		// rowspans reaching past the last cell of this row
		var rest []int
		for c := range pending {
			if c >= col {
				rest = append(rest, c)
			}
		}
		sort.Ints(rest)
		for _, c := range rest {
			for col < c {
				row = append(row, "")
				col++
			}
			takePending(col, &row)
			col++
		}

		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	return rows
}
