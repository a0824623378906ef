package fx

import (
	"encoding/csv"
	"io"
	"math"

	"github.com/shopspring/decimal"
)

// UndefinedCell marks a cell whose spot rate is undefined.
const UndefinedCell = "NaN"

// Table is the display form of a Matrix: one formatted string per cell.
type Table struct {
	Labels []string   `json:"labels"`
	Cells  [][]string `json:"cells"`
}

// Format renders each cell as "spot (±change%)", a bare spot when the
// change is undefined, or UndefinedCell when the spot is undefined.
func Format(m Matrix) Table {
	labels := make([]string, len(m.Currencies))
	copy(labels, m.Currencies)

	cells := make([][]string, len(m.Currencies))
	for i := range m.Currencies {
		cells[i] = make([]string, len(m.Currencies))
		for j := range m.Currencies {
			cells[i][j] = FormatCell(m.Spot[i][j], m.Change[i][j])
		}
	}
	return Table{Labels: labels, Cells: cells}
}

// FormatCell formats a single spot/change pair.
func FormatCell(spot, change float64) string {
	if math.IsNaN(spot) {
		return UndefinedCell
	}
	s := decimal.NewFromFloat(spot).StringFixed(spotPlaces)
	if math.IsNaN(change) {
		return s
	}
	c := decimal.NewFromFloat(change)
	sign := "+"
	if c.IsNegative() {
		sign = ""
	}
	return s + " (" + sign + c.StringFixed(changePlaces) + "%)"
}

// WriteCSV writes the table with a leading empty header cell so that the
// first column carries the row labels.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, t.Labels...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, row := range t.Cells {
		rec := append([]string{t.Labels[i]}, row...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
