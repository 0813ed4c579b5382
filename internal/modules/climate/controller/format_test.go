package controller

import (
	"math"
	"testing"

	"climate-server/internal/modules/climate/types"
)

func Test_formatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{53, "53.0"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{77.5, "77.5"},
		{73.09795396419437, "73.09795396419437"},
		{-4.25, "-4.25"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1.5e-7, "1.5e-07"},
		{1e16, "1e+16"},
		{123456789012345.0, "123456789012345.0"},
		{math.NaN(), "nan"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func Test_formatAggregate(t *testing.T) {
	if got := formatAggregate(nil); got != "null" {
		t.Errorf("formatAggregate(nil) = %q; want null", got)
	}
	if got := formatAggregate(f(81)); got != "81.0" {
		t.Errorf("formatAggregate(81) = %q; want 81.0", got)
	}
}

func Test_flattenStations_empty(t *testing.T) {
	got := flattenStations(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("flattenStations(nil) = %#v; want empty non-nil slice", got)
	}
}

func Test_flattenObservations(t *testing.T) {
	got := flattenObservations([]types.Observation{{Date: "2017-08-18", Tobs: f(79)}})
	if len(got) != 2 || got[0] != "2017-08-18" || got[1] != "79.0" {
		t.Errorf("flattenObservations = %#v", got)
	}
}
