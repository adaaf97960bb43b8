// Package export writes flight data branches as CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// Options controls which parts of a branch are written.
type Options struct {
	// Columns lists the quantities to write; empty means all.
	Columns []model.DataType
	// Events adds one "# EVENT" comment line per event ahead of the data.
	Events bool
}

// Header returns the CSV header for cols, with units in parentheses.
func Header(cols []model.DataType) []string {
	out := make([]string, len(cols))
	for i, d := range cols {
		if u := d.Unit(); u != "" {
			out[i] = fmt.Sprintf("%s (%s)", d, u)
		} else {
			out[i] = d.String()
		}
	}
	return out
}

// WriteBranch writes b to w as CSV.
func WriteBranch(w io.Writer, b *model.FlightDataBranch, opts Options) error {
	cols := opts.Columns
	if len(cols) == 0 {
		cols = make([]model.DataType, model.NumDataTypes)
		for i := range cols {
			cols[i] = model.DataType(i)
		}
	}

	if opts.Events {
		for _, e := range b.Events() {
			if _, err := fmt.Fprintf(w, "# EVENT %s t=%s %s\n", e.Type, strconv.FormatFloat(e.Time, 'f', 4, 64), e.Source); err != nil {
				return fmt.Errorf("csv write event: %w", err)
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(cols)); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	data := make([][]float64, len(cols))
	for i, d := range cols {
		data[i] = b.Get(d)
	}
	row := make([]string, len(cols))
	for r := 0; r < b.Len(); r++ {
		for i := range cols {
			row[i] = strconv.FormatFloat(data[i][r], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path and writes b to it.
func WriteFile(path string, b *model.FlightDataBranch, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("csv close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriterSize(f, 256*1024)
	if err := WriteBranch(bw, b, opts); err != nil {
		return err
	}
	return bw.Flush()
}
