// Package extract turns raw experimental data pages into the vibrational
// frequency and reference tables they contain.
package extract

import (
	"bytes"
	"fmt"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	VibrationsTitle = "Vibrational symmetries, frequencies, and intensities"
	ReferencesTitle = "References"
)

const (
	TableVibrations = "vibrations"
	TableReferences = "references"
)

// Table is a flattened html table, the first rows are usually the header
// rows of the page.
type Table [][]string

type Tables struct {
	Vibrations Table
	References Table
}

// Error is returned when a page does not have the expected structure.
type Error struct {
	ID     cas.Number
	Table  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %s table: %s", e.ID, e.Table, e.Reason)
}

func findBox(doc *goquery.Document, title string) *goquery.Selection {
	return doc.Find("div.box").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("title", "") == title
	}).First()
}

func findTable(doc *goquery.Document, id cas.Number, name, title, selector string) (Table, error) {
	box := findBox(doc, title)
	if box.Length() == 0 {
		return nil, &Error{ID: id, Table: name, Reason: fmt.Sprintf("no box titled '%s'", title)}
	}
	table := box.Find(selector).First()
	if table.Length() == 0 {
		return nil, &Error{ID: id, Table: name, Reason: fmt.Sprintf("no '%s' inside the box", selector)}
	}
	rows := htmlutil.ParseTable(table)
	if len(rows) == 0 {
		return nil, &Error{ID: id, Table: name, Reason: "table has no rows"}
	}
	return rows, nil
}

// Parse extracts both tables from the raw page of id.
func Parse(id cas.Number, contents []byte) (Tables, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(contents))
	if err != nil {
		return Tables{}, fmt.Errorf("parse page of %s: %w", id, err)
	}

	vibs, err := findTable(doc, id, TableVibrations, VibrationsTitle, "table")
	if err != nil {
		return Tables{}, err
	}
	refs, err := findTable(doc, id, TableReferences, ReferencesTitle, "table#reftable")
	if err != nil {
		return Tables{}, err
	}

	return Tables{
		Vibrations: vibs,
		References: refs,
	}, nil
}
