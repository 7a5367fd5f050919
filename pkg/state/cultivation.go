package state

// Cultivation is the player's progression track. Level never decreases.
type Cultivation struct {
	Level          int `json:"level"`
	Exp            int `json:"exp"`
	ExpToNextLevel int `json:"expToNextLevel"`
}

// NewCultivation returns the level-1 starting track.
func NewCultivation() Cultivation {
	return Cultivation{Level: 1, Exp: 0, ExpToNextLevel: 100}
}

// GainExp adds experience and resolves level-ups: while exp meets the
// threshold, subtract it, bump the level, and grow the next threshold by
// half again. The threshold strictly grows, so the loop terminates for
// any finite non-negative gain. Negative gain is ignored.
func (c *Cultivation) GainExp(gained int) int {
	if gained <= 0 {
		return 0
	}
	if c.ExpToNextLevel <= 0 {
		c.ExpToNextLevel = 100
	}
	levelsGained := 0
	c.Exp += gained
	for c.Exp >= c.ExpToNextLevel {
		c.Exp -= c.ExpToNextLevel
		c.Level++
		levelsGained++
		c.ExpToNextLevel = c.ExpToNextLevel * 3 / 2
	}
	return levelsGained
}
