package rating

import (
	"errors"
	"math"
	"testing"
)

func TestStarsToPercent(t *testing.T) {
	tests := []struct {
		name    string
		ratings []SongRating
		want    int
		wantErr error
	}{
		{
			name: "all fives",
			ratings: []SongRating{
				{TrackID: "t1", Rating: 5},
				{TrackID: "t2", Rating: 5},
			},
			want: 100,
		},
		{
			name:    "single zero",
			ratings: []SongRating{{TrackID: "t1", Rating: 0}},
			want:    0,
		},
		{
			name: "half stars average",
			ratings: []SongRating{
				{TrackID: "t1", Rating: 3.5},
				{TrackID: "t2", Rating: 4},
			},
			want: 75,
		},
		{
			name:    "out of range input clamps to five",
			ratings: []SongRating{{TrackID: "t1", Rating: 7.3}},
			want:    100,
		},
		{
			name:    "off grid input snaps to half star",
			ratings: []SongRating{{TrackID: "t1", Rating: 4.3}},
			want:    90,
		},
		{
			name:    "negative input clamps to zero",
			ratings: []SongRating{{TrackID: "t1", Rating: -2}},
			want:    0,
		},
		{
			name:    "empty list",
			ratings: nil,
			wantErr: ErrEmptySongRatings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StarsToPercent(tt.ratings)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StarsToPercent() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("StarsToPercent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"in range", 87, 87},
		{"rounds up", 86.5, 87},
		{"rounds down", 86.4, 86},
		{"below range", -3, 0},
		{"above range", 250, 100},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 100},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPercent(tt.value); got != tt.want {
				t.Errorf("ClampPercent(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestClampPercentIdempotent(t *testing.T) {
	for _, v := range []float64{-50, 0, 12.4, 49.5, 87, 100, 180.9, math.NaN()} {
		once := ClampPercent(v)
		twice := ClampPercent(float64(once))
		if once != twice {
			t.Errorf("ClampPercent not idempotent for %v: %d then %d", v, once, twice)
		}
		if once < 0 || once > 100 {
			t.Errorf("ClampPercent(%v) = %d outside [0,100]", v, once)
		}
	}
}

func TestNormalizeStored(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"legacy five scale max", 5, 100},
		{"legacy five scale mid", 3.5, 70},
		{"legacy zero", 0, 0},
		{"already percent", 87, 87},
		{"percent just above guard", 6, 6},
		{"percent needs clamp", 140, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStored(tt.value); got != tt.want {
				t.Errorf("NormalizeStored(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}

	// Migration must not re-apply to already-migrated values.
	migrated := NormalizeStored(4.5) // 90
	if again := NormalizeStored(float64(migrated)); again != migrated {
		t.Errorf("NormalizeStored re-applied migration: %d then %d", migrated, again)
	}
}
