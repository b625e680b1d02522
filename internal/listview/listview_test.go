package listview

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/models"
	"github.com/langchou/packlist/internal/nav"
)

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func sampleLists() []*models.List {
	return []*models.List{
		{ID: 1, DriverName: "eva", LicensePlate: "2CD", Items: []string{"a", "b", "c"}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, DriverName: "Adam", LicensePlate: "1AB", Items: []string{"a"}, CreatedAt: base},
		{ID: 3, DriverName: "Jan", LicensePlate: "3EF", Items: []string{}, UpdatedAt: base.Add(time.Hour)},
		{ID: 4, DriverName: "Adam", LicensePlate: "9ZZ", Items: []string{"a", "b"}, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(lists []*models.List) []int64 {
	out := make([]int64, 0, len(lists))
	for _, l := range lists {
		out = append(out, l.ID)
	}
	return out
}

func TestSortState_Toggle(t *testing.T) {
	s := InitialSort()
	assert.Equal(t, SortState{KeyID, Desc}, s)

	s = s.Toggle(KeyID)
	assert.Equal(t, SortState{KeyID, Asc}, s)

	s = s.Toggle(KeyDriver)
	assert.Equal(t, SortState{KeyDriver, Asc}, s)

	s = s.Toggle(KeyDriver)
	assert.Equal(t, SortState{KeyDriver, Desc}, s)

	s = s.Toggle(KeyID)
	assert.Equal(t, SortState{KeyID, Desc}, s)
}

func TestSort(t *testing.T) {
	tests := []struct {
		state SortState
		want  []int64
	}{
		{SortState{KeyID, Desc}, []int64{4, 3, 2, 1}},
		{SortState{KeyID, Asc}, []int64{1, 2, 3, 4}},
		{SortState{KeyDriver, Asc}, []int64{2, 4, 1, 3}},
		{SortState{KeyPlate, Asc}, []int64{2, 1, 3, 4}},
		{SortState{KeyItemCount, Desc}, []int64{1, 4, 2, 3}},
		{SortState{KeyCreatedAt, Asc}, []int64{2, 3, 1, 4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state.Key)+"_"+string(tt.state.Dir), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Sort(sampleLists(), tt.state))); diff != "" {
				t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	lists := sampleLists()
	_ = Sort(lists, SortState{KeyDriver, Asc})
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(lists))
}

func TestSort_ToggleTwiceRestoresOrder(t *testing.T) {
	for _, key := range SortKeys {
		t.Run(string(key), func(t *testing.T) {
			s := InitialSort().Toggle(key)
			first := ids(Sort(sampleLists(), s))
			again := ids(Sort(sampleLists(), s.Toggle(key).Toggle(key)))
			assert.Equal(t, first, again)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("ITEMCOUNT")
	require.NoError(t, err)
	assert.Equal(t, KeyItemCount, k)

	_, err = ParseSortKey("weight")
	assert.Error(t, err)
}

type fakeSource struct {
	lists []*models.List
	calls int
	err   error
}

func (f *fakeSource) GetAllLists(context.Context) ([]*models.List, error) {
	f.calls++
	return f.lists, f.err
}

func (f *fakeSource) GetList(_ context.Context, id int64) (*models.List, error) {
	for _, l := range f.lists {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, models.ErrNotFound
}

type recordingExporter struct {
	got []int64
}

func (r *recordingExporter) Export(_ context.Context, l *models.List) error {
	r.got = append(r.got, l.ID)
	return nil
}

func TestTable_RefreshTriggers(t *testing.T) {
	src := &fakeSource{lists: sampleLists()}
	table := NewTable(src, &recordingExporter{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, table.OnVisibilityChange(ctx, true))
	assert.Equal(t, 0, src.calls)
	require.NoError(t, table.OnVisibilityChange(ctx, false))
	assert.Equal(t, 1, src.calls)

	require.NoError(t, table.OnPageShow(ctx, false))
	assert.Equal(t, 1, src.calls)
	require.NoError(t, table.OnPageShow(ctx, true))
	assert.Equal(t, 2, src.calls)
}

func TestTable_Rows(t *testing.T) {
	table := NewTable(&fakeSource{lists: sampleLists()}, &recordingExporter{}, zap.NewNop())
	table.SetLocation(time.UTC)
	assert.Empty(t, table.Rows())

	require.NoError(t, table.Refresh(context.Background()))
	rows := table.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, Row{ID: 4, Driver: "Adam", Plate: "9ZZ", ItemCount: 2, Date: "01.03.2026 11:00"}, rows[0])
	assert.Equal(t, "01.03.2026 09:00", rows[1].Date)

	table.ToggleSort(KeyItemCount)
	assert.Equal(t, int64(3), table.Rows()[0].ID)
}

func TestTable_RefreshError(t *testing.T) {
	table := NewTable(&fakeSource{err: errors.New("offline")}, &recordingExporter{}, zap.NewNop())
	err := table.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}

func TestTable_ExportAndEdit(t *testing.T) {
	exp := &recordingExporter{}
	table := NewTable(&fakeSource{lists: sampleLists()}, exp, zap.NewNop())

	require.NoError(t, table.Export(context.Background(), 2))
	assert.Equal(t, []int64{2}, exp.got)

	err := table.Export(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, nav.Destination{Page: nav.Edit, ID: 2}, table.EditTarget(2))
}

func TestTextExporter(t *testing.T) {
	var buf bytes.Buffer
	list := &models.List{ID: 7, DriverName: "Jan", Items: []string{"A", "B", "C"}, CreatedAt: base}

	err := TextExporter{Out: &buf, PageSize: 2, Location: time.UTC}.Export(context.Background(), list)
	require.NoError(t, err)

	out := buf.String()
	pages := strings.Split(out, "\f")
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "ID: 7")
	assert.Contains(t, pages[0], "Driver: Jan")
	assert.Contains(t, pages[0], "SPZ: -")
	assert.Contains(t, pages[0], "Items\n")
	assert.Contains(t, pages[1], "Items (continued)")
	assert.Contains(t, pages[1], "C\n")
	assert.NotContains(t, pages[1], "A\n")
	assert.Equal(t, 2, strings.Count(out, "Date: 01.03.2026"))
	assert.Equal(t, 2, strings.Count(out, "Signature: ____________________"))
}
