package state

import "testing"

func TestGameTime_AdvanceRollsOverHoursAndDays(t *testing.T) {
	gt := GameTime{Day: 1, Hour: 23, Minute: 30, Season: SeasonSpring}

	gt.Advance(45)

	if gt.Day != 2 || gt.Hour != 0 || gt.Minute != 15 {
		t.Errorf("Expected day 2 00:15, got day %d %02d:%02d", gt.Day, gt.Hour, gt.Minute)
	}
}

func TestGameTime_AdvanceMultipleDays(t *testing.T) {
	gt := NewGameTime()

	gt.Advance(3 * 24 * 60)

	if gt.Day != 4 || gt.Hour != 8 || gt.Minute != 0 {
		t.Errorf("Expected day 4 08:00, got day %d %02d:%02d", gt.Day, gt.Hour, gt.Minute)
	}
}

func TestGameTime_AdvanceIgnoresNonPositive(t *testing.T) {
	gt := NewGameTime()
	before := gt

	gt.Advance(0)
	gt.Advance(-10)

	if gt != before {
		t.Errorf("Expected clock unchanged, got %+v", gt)
	}
}

func TestSeasonForDay_Bands(t *testing.T) {
	tests := []struct {
		day    int
		season string
	}{
		{1, SeasonSpring},
		{91, SeasonSpring},
		{92, SeasonSummer},
		{182, SeasonSummer},
		{183, SeasonAutumn},
		{273, SeasonAutumn},
		{274, SeasonWinter},
		{364, SeasonWinter},
		{365, SeasonSpring}, // wraps into year two
	}
	for _, tc := range tests {
		if got := SeasonForDay(tc.day); got != tc.season {
			t.Errorf("SeasonForDay(%d) = %s, want %s", tc.day, got, tc.season)
		}
	}
}

func TestGameTime_SeasonRecomputedOnAdvance(t *testing.T) {
	gt := GameTime{Day: 91, Hour: 23, Minute: 0, Season: SeasonSpring}

	gt.Advance(60)

	if gt.Day != 92 || gt.Season != SeasonSummer {
		t.Errorf("Expected day 92 in %s, got day %d in %s", SeasonSummer, gt.Day, gt.Season)
	}
}
