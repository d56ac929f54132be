package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow(t *testing.T) Window {
	t.Helper()
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	w, err := NewWindow(start, start.Add(2*time.Hour))
	require.NoError(t, err)
	return w
}

func TestNewWindowRejectsInvertedRange(t *testing.T) {
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	_, err := NewWindow(start, start)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = NewWindow(start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	w, _ := NewWindow(base, base.Add(2*time.Hour))

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		overlap bool
	}{
		{"identical", base, base.Add(2 * time.Hour), true},
		{"contained", base.Add(30 * time.Minute), base.Add(time.Hour), true},
		{"straddles start", base.Add(-time.Hour), base.Add(time.Minute), true},
		{"touches end exactly", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
		{"touches start exactly", base.Add(-time.Hour), base, false},
		{"disjoint", base.Add(5 * time.Hour), base.Add(6 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := NewWindow(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.overlap, w.Overlaps(other))
			assert.Equal(t, tt.overlap, other.Overlaps(w))
		})
	}
}

func TestBestFitRanksTightestFirst(t *testing.T) {
	small := Resource{ID: uuid.New(), Name: "Garden Room", Capacity: 4}
	large := Resource{ID: uuid.New(), Name: "Main Hall", Capacity: 12}

	got := BestFit(testWindow(t), 3, []Resource{large, small}, nil)

	require.Len(t, got, 2)
	assert.Equal(t, small.ID, got[0].ResourceID)
	assert.Equal(t, 1, got[0].Leftover)
	assert.Equal(t, large.ID, got[1].ResourceID)
	assert.Equal(t, 9, got[1].Leftover)
}

func TestBestFitTieBreaksByName(t *testing.T) {
	b := Resource{ID: uuid.New(), Name: "Birch", Capacity: 6}
	a := Resource{ID: uuid.New(), Name: "Alder", Capacity: 6}

	got := BestFit(testWindow(t), 2, []Resource{b, a}, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "Alder", got[0].Name)
	assert.Equal(t, "Birch", got[1].Name)
}

func TestBestFitAccountsForOverlappingUsage(t *testing.T) {
	// required=2: A has cap 2 with 1 used -> available 1, infeasible.
	// B has cap 4 unused -> feasible with leftover 2.
	a := Resource{ID: uuid.New(), Name: "A", Capacity: 2}
	b := Resource{ID: uuid.New(), Name: "B", Capacity: 4}
	usage := map[uuid.UUID]int{a.ID: 1}

	got := BestFit(testWindow(t), 2, []Resource{a, b}, usage)

	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ResourceID)
	assert.Equal(t, 2, got[0].Leftover)
}

func TestBestFitInfeasibleReturnsEmpty(t *testing.T) {
	a := Resource{ID: uuid.New(), Name: "A", Capacity: 2}
	b := Resource{ID: uuid.New(), Name: "B", Capacity: 3}

	got := BestFit(testWindow(t), 10, []Resource{a, b}, nil)

	assert.Empty(t, got)
	assert.NotNil(t, got, "infeasible must be an empty slice, not nil")
}

func TestBestFitNoResources(t *testing.T) {
	got := BestFit(testWindow(t), 1, nil, nil)
	assert.Empty(t, got)
}

func TestBestFitDeterministic(t *testing.T) {
	resources := []Resource{
		{ID: uuid.New(), Name: "C", Capacity: 5},
		{ID: uuid.New(), Name: "A", Capacity: 5},
		{ID: uuid.New(), Name: "B", Capacity: 7},
	}

	first := BestFit(testWindow(t), 2, resources, nil)
	second := BestFit(testWindow(t), 2, resources, nil)
	assert.Equal(t, first, second)
}
