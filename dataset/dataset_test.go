package dataset

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDataset(t *testing.T) *TSDataset {
	t.Helper()
	ds, err := FromSeries(testStart, Daily,
		Series{Name: "a", Values: []float64{1, 2, 3, 4, 5}},
		Series{Name: "b", Values: []float64{10, 20, 30, 40, 50}},
	)
	require.NoError(t, err)
	return ds
}

func TestFromSeries(t *testing.T) {
	ds := newTestDataset(t)

	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, Daily, ds.Freq())
	assert.Equal(t, []string{"a", "b"}, ds.Segments())
	assert.True(t, ds.HasSegment("a"))
	assert.False(t, ds.HasSegment("c"))

	target, err := ds.Target("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, target)
}

func TestFromSeriesValidation(t *testing.T) {
	_, err := FromSeries(testStart, Daily)
	assert.Error(t, err)

	_, err = FromSeries(testStart, Daily,
		Series{Name: "a", Values: []float64{1, 2}},
		Series{Name: "b", Values: []float64{1}},
	)
	assert.Error(t, err)

	_, err = FromSeries(testStart, Daily,
		Series{Name: "a", Values: []float64{1}},
		Series{Name: "a", Values: []float64{2}},
	)
	assert.Error(t, err)
}

func TestNewRequiresTarget(t *testing.T) {
	index, err := NewTimeIndex(testStart, Daily, 2)
	require.NoError(t, err)

	_, err = New(index, map[string]map[string][]float64{
		"a": {"feature": {1, 2}},
	})
	assert.Error(t, err)
}

func TestNewRejectsInvalidIndex(t *testing.T) {
	// The index can be caller-constructed without NewTimeIndex, so the
	// constructor revalidates it.
	segments := map[string]map[string][]float64{
		"a": {TargetColumn: {1, 2}},
	}

	_, err := New(TimeIndex{Start: testStart, Freq: 0, N: 2}, segments)
	assert.Error(t, err)
	_, err = New(TimeIndex{Start: testStart, Freq: -Daily, N: 2}, segments)
	assert.Error(t, err)
	_, err = New(TimeIndex{Start: testStart, Freq: Daily, N: -1}, segments)
	assert.Error(t, err)
}

func TestAccessorsReturnCopies(t *testing.T) {
	ds := newTestDataset(t)

	target, err := ds.Target("a")
	require.NoError(t, err)
	target[0] = 999

	again, err := ds.Target("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0])
}

func TestSetAndDropColumn(t *testing.T) {
	ds := newTestDataset(t)

	require.NoError(t, ds.SetColumn("a", "feature", []float64{0, 0, 0, 0, 1}))
	assert.False(t, ds.HasColumn("feature")) // only segment a carries it

	col, err := ds.Column("a", "feature")
	require.NoError(t, err)
	assert.Equal(t, 1.0, col[4])

	assert.Error(t, ds.SetColumn("a", "short", []float64{1}))
	assert.Error(t, ds.DropColumn(TargetColumn))
	require.NoError(t, ds.DropColumn("feature"))
	_, err = ds.Column("a", "feature")
	assert.Error(t, err)
}

func TestSliceAndSplit(t *testing.T) {
	ds := newTestDataset(t)

	mid, err := ds.Slice(1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, mid.Len())
	assert.Equal(t, testStart.Add(Daily), mid.Index().Start)

	target, err := mid.Target("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, target)

	train, test, err := ds.TrainTestSplit(2)
	require.NoError(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, train.Index().End().Add(Daily), test.Index().Start)

	_, _, err = ds.TrainTestSplit(5)
	assert.Error(t, err)
}

func TestMakeFuture(t *testing.T) {
	ds := newTestDataset(t)

	future, err := ds.MakeFuture(3)
	require.NoError(t, err)
	assert.Equal(t, 3, future.Len())
	assert.Equal(t, ds.Index().End().Add(Daily), future.Index().Start)

	target, err := future.Target("a")
	require.NoError(t, err)
	for _, v := range target {
		assert.True(t, math.IsNaN(v))
	}

	_, err = ds.MakeFuture(0)
	assert.Error(t, err)
}

func TestExtendBy(t *testing.T) {
	ds := newTestDataset(t)

	extended, err := ds.ExtendBy(2)
	require.NoError(t, err)
	assert.Equal(t, 7, extended.Len())
	assert.Equal(t, ds.Index().Start, extended.Index().Start)

	target, err := extended.Target("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, target[:5])
	assert.True(t, math.IsNaN(target[5]))
	assert.True(t, math.IsNaN(target[6]))
}

func TestCloneIsIndependent(t *testing.T) {
	ds := newTestDataset(t)
	clone := ds.Clone()

	require.NoError(t, clone.SetColumn("a", TargetColumn, []float64{0, 0, 0, 0, 0}))

	original, err := ds.Target("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, original)
}

func TestDescribe(t *testing.T) {
	ds, err := FromSeries(testStart, Daily,
		Series{Name: "a", Values: []float64{1, 2, math.NaN(), 4}},
	)
	require.NoError(t, err)

	summary := ds.Describe()["a"]
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 1, summary.Missing)
	assert.InDelta(t, 7.0/3, summary.Mean, 1e-12)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)
}

func TestCSVRoundTrip(t *testing.T) {
	ds := newTestDataset(t)

	var sb strings.Builder
	require.NoError(t, ds.WriteCSV(&sb))

	back, err := ReadCSV(strings.NewReader(sb.String()), Daily)
	require.NoError(t, err)
	assert.Equal(t, ds.Segments(), back.Segments())
	assert.Equal(t, ds.Len(), back.Len())

	want, err := ds.Target("b")
	require.NoError(t, err)
	got, err := back.Target("b")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadCSVSparseSegments(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(func(w error) {})

	csv := "timestamp,segment,target\n" +
		"2024-01-01,a,1\n" +
		"2024-01-03,a,3\n" +
		"2024-01-02,b,2\n"

	ds, err := ReadCSV(strings.NewReader(csv), Daily)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	a, err := ds.Target("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, a[0])
	assert.True(t, math.IsNaN(a[1]))
	assert.Equal(t, 3.0, a[2])

	// Both segments have grid gaps, so the loader reports the padding.
	require.Len(t, warned, 2)
	var conv *errors.DataConversionWarning
	assert.ErrorAs(t, warned[0], &conv)
}

func TestReadCSVOffGrid(t *testing.T) {
	csv := "timestamp,segment,target\n" +
		"2024-01-01,a,1\n" +
		"2024-01-02 12:00:00,a,2\n"

	_, err := ReadCSV(strings.NewReader(csv), Daily)
	assert.Error(t, err)
}

func TestTimeIndexPosition(t *testing.T) {
	ix, err := NewTimeIndex(testStart, time.Hour, 24)
	require.NoError(t, err)

	pos, ok := ix.Position(testStart.Add(5 * time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 5, pos)

	_, ok = ix.Position(testStart.Add(30 * time.Minute))
	assert.False(t, ok)
	_, ok = ix.Position(testStart.Add(-time.Hour))
	assert.False(t, ok)
	_, ok = ix.Position(testStart.Add(24 * time.Hour))
	assert.False(t, ok)

	ext := ix.Extend(6)
	assert.Equal(t, testStart.Add(24*time.Hour), ext.Start)
	assert.Equal(t, 6, ext.N)
}
