package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

// timestamp layouts accepted by the CSV reader, tried in order.
var csvLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV reads a long-format CSV file with a header row and columns
// timestamp, segment, target. Timestamps may be sparse per segment; the
// loader builds the union index at the given frequency and fills gaps with
// NaN.
func LoadCSV(path string, freq time.Duration) (*TSDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.LoadCSV: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, freq)
}

// ReadCSV is LoadCSV over an io.Reader.
func ReadCSV(r io.Reader, freq time.Duration) (*TSDataset, error) {
	if freq <= 0 {
		return nil, errors.NewValidationError("freq", "must be positive", freq)
	}

	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset.ReadCSV: parse")
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("dataset.ReadCSV", "no data rows", errors.ErrEmptyData)
	}

	type point struct {
		t time.Time
		v float64
	}
	bySegment := make(map[string][]point)
	var minT, maxT time.Time
	first := true

	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, errors.NewValueError("dataset.ReadCSV",
				"expected columns: timestamp, segment, target")
		}
		t, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, errors.Wrapf(err, "dataset.ReadCSV: row %d", i+2)
		}
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset.ReadCSV: row %d", i+2)
		}
		bySegment[rec[1]] = append(bySegment[rec[1]], point{t: t, v: v})

		if first || t.Before(minT) {
			minT = t
		}
		if first || t.After(maxT) {
			maxT = t
		}
		first = false
	}

	n := int(maxT.Sub(minT)/freq) + 1
	index, err := NewTimeIndex(minT, freq, n)
	if err != nil {
		return nil, err
	}

	segments := make(map[string]map[string][]float64, len(bySegment))
	for name, points := range bySegment {
		target := make([]float64, n)
		for i := range target {
			target[i] = math.NaN()
		}
		sort.Slice(points, func(i, j int) bool { return points[i].t.Before(points[j].t) })
		for _, p := range points {
			pos, ok := index.Position(p.t)
			if !ok {
				return nil, errors.NewValueError("dataset.ReadCSV",
					"timestamp "+p.t.Format(time.RFC3339)+" is off the "+freq.String()+" grid")
			}
			target[pos] = p.v
		}

		missing := 0
		for _, v := range target {
			if math.IsNaN(v) {
				missing++
			}
		}
		if missing > 0 {
			errors.Warn(errors.NewDataConversionWarning("sparse long rows", "NaN-padded panel",
				fmt.Sprintf("segment %q misses %d of %d grid points", name, missing, n)))
		}
		segments[name] = map[string][]float64{TargetColumn: target}
	}

	return New(index, segments)
}

// WriteCSV writes the target column of every segment in the long format read
// by ReadCSV. NaN rows are skipped.
func (ds *TSDataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "segment", "target"}); err != nil {
		return errors.Wrap(err, "TSDataset.WriteCSV")
	}
	for _, name := range ds.names {
		target := ds.segments[name][TargetColumn]
		for i, v := range target {
			if math.IsNaN(v) {
				continue
			}
			rec := []string{
				ds.index.At(i).Format(time.RFC3339),
				name,
				strconv.FormatFloat(v, 'g', -1, 64),
			}
			if err := writer.Write(rec); err != nil {
				return errors.Wrap(err, "TSDataset.WriteCSV")
			}
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "TSDataset.WriteCSV")
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range csvLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
