package storage

import (
	"encoding/json"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// ExportData is a self-contained JSON view of a run.
type ExportData struct {
	Run      RunMetadata `json:"run"`
	Times    []float64   `json:"times"`
	Controls [][]float64 `json:"controls"`
}

func newExportData(meta RunMetadata, seq *mat.Dense, times []float64) ExportData {
	rows, _ := seq.Dims()
	data := ExportData{
		Run:      meta,
		Times:    times,
		Controls: make([][]float64, rows),
	}
	for i := range data.Controls {
		data.Controls[i] = mat.Row(nil, i, seq)
	}
	return data
}

// ExportJSON writes a run as indented JSON to w.
func ExportJSON(w io.Writer, meta RunMetadata, seq *mat.Dense, times []float64) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, seq, times))
}

// ExportJSONFile writes a run as indented JSON to path.
func ExportJSONFile(path string, meta RunMetadata, seq *mat.Dense, times []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportJSON(file, meta, seq, times)
}
