package scoring

import "testing"

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp        int
		wantLevel int
		wantTitle string
	}{
		{0, 1, "Trainee"},
		{199, 1, "Trainee"},
		{200, 2, "Junior"},
		{999, 3, "Middle"},
		{1000, 4, "Senior"},
		{2000, 5, "Lead"},
		{4000, 6, "Principal"},
		{1000000, 6, "Principal"},
	}

	for _, tt := range tests {
		got := LevelForXP(tt.xp)
		if got.Level != tt.wantLevel || got.Title != tt.wantTitle {
			t.Errorf("LevelForXP(%d) = %d %q, want %d %q", tt.xp, got.Level, got.Title, tt.wantLevel, tt.wantTitle)
		}
	}
}

func TestProgress(t *testing.T) {
	t.Run("mid level", func(t *testing.T) {
		p := Progress(300) // Junior spans 200-499
		if p.Current != 100 {
			t.Errorf("Current = %d, want 100", p.Current)
		}
		if p.Needed != 299 {
			t.Errorf("Needed = %d, want 299", p.Needed)
		}
		if p.Percent != 33 {
			t.Errorf("Percent = %d, want 33", p.Percent)
		}
	})

	t.Run("open-ended last level stays renderable", func(t *testing.T) {
		p := Progress(5000)
		if p.Needed != 9999 {
			t.Errorf("Needed = %d, want 9999", p.Needed)
		}
		if p.Percent > 100 {
			t.Errorf("Percent = %d, must not exceed 100", p.Percent)
		}
	})
}

func TestUnlocked(t *testing.T) {
	t.Run("fresh user has nothing", func(t *testing.T) {
		if ids := Unlocked(ProgressSnapshot{}); len(ids) != 0 {
			t.Errorf("Unlocked = %v, want none", ids)
		}
	})

	t.Run("streak tiers accumulate", func(t *testing.T) {
		ids := Unlocked(ProgressSnapshot{StreakDays: 30})
		want := map[string]bool{"streak_3": true, "streak_7": true, "streak_30": true}
		if len(ids) != len(want) {
			t.Fatalf("Unlocked = %v", ids)
		}
		for _, id := range ids {
			if !want[id] {
				t.Errorf("unexpected id %s", id)
			}
		}
	})

	t.Run("xp threshold", func(t *testing.T) {
		ids := Unlocked(ProgressSnapshot{XP: 1000})
		found := false
		for _, id := range ids {
			if id == "level_senior" {
				found = true
			}
		}
		if !found {
			t.Errorf("Unlocked = %v, want level_senior", ids)
		}
	})
}
