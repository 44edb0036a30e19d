package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseTable(t *testing.T, markup string) [][]string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return ParseTable(doc.Find("table").First())
}

func TestParseTableSpans(t *testing.T) {
	rows := parseTable(t, `<table>
		<tr><th rowspan="3">A</th><th colspan="2">B</th></tr>
		<tr><td>1</td><td rowspan="2">2</td></tr>
		<tr><td>3</td></tr>
	</table>`)
	require.Equal(t, [][]string{
		{"A", "B", "B"},
		{"A", "1", "2"},
		{"A", "3", "2"},
	}, rows)
}

func TestParseTableTrailingRowspan(t *testing.T) {
	rows := parseTable(t, `<table>
		<tr><td>a</td><td>b</td><td rowspan="2">c</td></tr>
		<tr><td>d</td></tr>
	</table>`)
	require.Equal(t, [][]string{
		{"a", "b", "c"},
		{"d", "", "c"},
	}, rows)
}

func TestParseTableIgnoresNestedTables(t *testing.T) {
	rows := parseTable(t, `<table>
		<tr><td>outer</td><td><table><tr><td>inner</td></tr></table></td></tr>
	</table>`)
	require.Equal(t, [][]string{{"outer", "inner"}}, rows)
}

func TestParseTableBadSpan(t *testing.T) {
	rows := parseTable(t, `<table><tr><td colspan="x">a</td><td colspan="0">b</td></tr></table>`)
	require.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestCleanText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<p> Frequency   (cm<sup>-1</sup>)<br>value\n</p>",
	))
	require.NoError(t, err)
	require.Equal(t, "Frequency (cm-1) value", CleanText(doc.Find("p").Nodes[0]))
}
