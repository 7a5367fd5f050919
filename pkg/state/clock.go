package state

// Season names for the four fixed 91-day bands of the year.
const (
	SeasonSpring = "Xuân"
	SeasonSummer = "Hạ"
	SeasonAutumn = "Thu"
	SeasonWinter = "Đông"
)

const (
	minutesPerHour = 60
	hoursPerDay    = 24
	daysPerYear    = 364 // four seasons of 91 days
)

// GameTime tracks in-world time. Season is derived from Day; Weather is
// narrative state owned by the turn engine.
type GameTime struct {
	Day     int    `json:"day"` // 1-based, never resets
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Season  string `json:"season"`
	Weather string `json:"weather,omitempty"`
}

// NewGameTime returns the start-of-story clock: morning of day 1.
func NewGameTime() GameTime {
	return GameTime{
		Day:     1,
		Hour:    8,
		Minute:  0,
		Season:  SeasonForDay(1),
		Weather: "Trời quang",
	}
}

// Advance moves the clock forward by the given number of minutes with
// hour and day rollover, then recomputes the season. Negative input is
// ignored.
func (t *GameTime) Advance(minutes int) {
	if minutes <= 0 {
		return
	}
	total := t.Minute + minutes
	t.Minute = total % minutesPerHour
	hours := t.Hour + total/minutesPerHour
	t.Hour = hours % hoursPerDay
	t.Day += hours / hoursPerDay
	t.Season = SeasonForDay(t.Day)
}

// SeasonForDay maps an absolute day to its season using four fixed
// 91-day bands of the 364-day year.
func SeasonForDay(day int) string {
	if day < 1 {
		day = 1
	}
	dayOfYear := (day - 1) % daysPerYear
	switch dayOfYear / 91 {
	case 0:
		return SeasonSpring
	case 1:
		return SeasonSummer
	case 2:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}
