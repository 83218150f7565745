package scoring

import "math"

// Level is one rung of the progression ladder.
type Level struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	MinXP int    `json:"minXP"`
	MaxXP int    `json:"maxXP"` // math.MaxInt for the last level
}

var levels = []Level{
	{Level: 1, Title: "Trainee", MinXP: 0, MaxXP: 199},
	{Level: 2, Title: "Junior", MinXP: 200, MaxXP: 499},
	{Level: 3, Title: "Middle", MinXP: 500, MaxXP: 999},
	{Level: 4, Title: "Senior", MinXP: 1000, MaxXP: 1999},
	{Level: 5, Title: "Lead", MinXP: 2000, MaxXP: 3999},
	{Level: 6, Title: "Principal", MinXP: 4000, MaxXP: math.MaxInt},
}

// LevelForXP returns the highest level whose MinXP the total meets.
func LevelForXP(xp int) Level {
	for i := len(levels) - 1; i >= 0; i-- {
		if xp >= levels[i].MinXP {
			return levels[i]
		}
	}
	return levels[0]
}

// XPProgress describes position within the current level.
type XPProgress struct {
	Current int `json:"current"` // XP earned inside the level
	Needed  int `json:"needed"`  // level width
	Percent int `json:"percent"`
}

// Progress computes position within the level that xp falls into. The
// open-ended last level reports a fixed width so progress bars stay
// renderable.
func Progress(xp int) XPProgress {
	level := LevelForXP(xp)
	current := xp - level.MinXP
	needed := 9999
	if level.MaxXP != math.MaxInt {
		needed = level.MaxXP - level.MinXP
	}
	percent := int(math.Round(float64(current) / float64(needed) * 100))
	if percent > 100 {
		percent = 100
	}
	return XPProgress{Current: current, Needed: needed, Percent: percent}
}
