package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/mindoutline/internal/doctree"
)

// CSVParser reads each row as a path through the outline: the first cell
// is a top-level bullet, the second nests under it, and so on. Rows sharing
// a prefix share those nodes. A row ends at its first empty cell.
type CSVParser struct {
	Options Options

	// Header drops the first row.
	Header bool
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if p.Header && len(records) > 0 {
		records = records[1:]
	}

	var w outlineWriter
	var prev []string
	for _, row := range records {
		cells := rowPath(row)
		same := 0
		for same < len(cells) && same < len(prev) && cells[same] == prev[same] {
			same++
		}
		for i := same; i < len(cells); i++ {
			w.bullet(i, cells[i])
		}
		if len(cells) > 0 {
			prev = cells
		}
	}
	return w.tree(filename, "", p.Options), nil
}

func rowPath(row []string) []string {
	var cells []string
	for _, c := range row {
		c = singleLine(c)
		if c == "" {
			break
		}
		cells = append(cells, c)
	}
	return cells
}
