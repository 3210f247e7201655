package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/facette/natsort"
)

type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}
func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// WriteCSV writes the header row followed by data, naturally sorted on the
// first column when sorted is set.
func WriteCSV(w io.Writer, columns []string, data CSV, sorted bool) error {
	cw := csv.NewWriter(w)
	if len(columns) > 0 {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("error writing csv header: %w", err)
		}
	}
	if sorted {
		sort.Stable(data)
	}
	if err := cw.WriteAll(data); err != nil {
		return fmt.Errorf("error writing csv: %w", err)
	}
	return nil
}

func WriteAsCSV(data CSV, path, subpath, filename string, columns []string, makeDir bool) error {
	file, err := OpenFile(makeDir, path, subpath, GetFilename(filename), ".csv")
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", filename, err)
	}
	defer file.Close()
	return WriteCSV(file, columns, data, true)
}
