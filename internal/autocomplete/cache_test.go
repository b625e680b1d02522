package autocomplete

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSource struct {
	drivers    []string
	plates     []string
	driversErr error
}

func (f fakeSource) GetDrivers(context.Context) ([]string, error) {
	return f.drivers, f.driversErr
}

func (f fakeSource) GetLicensePlates(context.Context) ([]string, error) {
	return f.plates, nil
}

func TestSuggest(t *testing.T) {
	many := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10"}

	tests := []struct {
		name       string
		query      string
		candidates []string
		want       []string
	}{
		{name: "case insensitive substring", query: "AN", candidates: []string{"Jan", "Eva", "Daniel", "anna"}, want: []string{"Jan", "Daniel", "anna"}},
		{name: "no match", query: "x", candidates: []string{"Jan"}, want: []string{}},
		{name: "capped at eight", query: "a", candidates: many, want: many[:8]},
		{name: "empty query lists first eight", query: "", candidates: many, want: many[:8]},
		{name: "diacritics", query: "ZDENĚ", candidates: []string{"Zdeněk", "Zdenka"}, want: []string{"Zdeněk"}},
		{name: "no candidates", query: "a", candidates: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Suggest(tt.query, tt.candidates)); diff != "" {
				t.Errorf("Suggest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCache_LoadAndGet(t *testing.T) {
	c := New(fakeSource{drivers: []string{"Eva", "Jan"}, plates: []string{"1AB"}}, zap.NewNop())
	assert.Empty(t, c.Get(Drivers))

	c.Load(context.Background())
	assert.Equal(t, []string{"Eva", "Jan"}, c.Get(Drivers))
	assert.Equal(t, []string{"1AB"}, c.Get(LicensePlates))
	assert.Equal(t, []string{"Jan"}, c.Suggest(Drivers, "j"))
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := New(fakeSource{drivers: []string{"Eva"}}, zap.NewNop())
	c.Load(context.Background())

	got := c.Get(Drivers)
	got[0] = "changed"
	assert.Equal(t, []string{"Eva"}, c.Get(Drivers))
}

func TestCache_FailedKindStaysEmpty(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(fakeSource{driversErr: errors.New("offline"), plates: []string{"1AB"}}, zap.New(core))

	c.Load(context.Background())
	assert.Empty(t, c.Get(Drivers))
	assert.Equal(t, []string{"1AB"}, c.Get(LicensePlates))
	assert.Equal(t, 1, logs.FilterMessage("Failed to load autocomplete data").Len())
}
