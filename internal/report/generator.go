package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// Generator renders assembled rows into file bytes.  Rich formats
// (Excel, PDF) live behind this interface and outside this module;
// the in-tree CSVGenerator covers the default export path.
type Generator interface {
	Generate(rows []Row, filterSummary string) ([]byte, error)
}

// CSVGenerator writes the rows as a CSV document with the filter
// summary as a leading comment line.
type CSVGenerator struct{}

// Generate implements Generator.
func (CSVGenerator) Generate(rows []Row, filterSummary string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", filterSummary)
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Indicateur", "Axe", "Objectif", "Structure", "Numérateur", "Dénominateur", "Taux", "Cible", "Écart"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			r.Indicator,
			r.Category,
			r.Objective,
			r.Structure,
			f2s(r.SumNumerator),
			f2s(r.SumDenominator),
			f2s(r.Rate),
			f2s(r.Target),
			f2s(r.Gap),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func f2s(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
