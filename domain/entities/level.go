package entities

// Progress describes where an experience total sits inside its level
type Progress struct {
	Level     int   `json:"level"`
	CurrentXP int64 `json:"current_xp"` // experience earned inside the current level
	NeededXP  int64 `json:"needed_xp"`  // experience span of the current level
}

// LevelForExperience derives the level: clamp(floor(xp/100)+1, 1, 100)
func LevelForExperience(experience int64) int {
	if experience < 0 {
		return MinLevel
	}
	level := experience/ExperiencePerLevel + 1
	if level > MaxLevel {
		return MaxLevel
	}
	return int(level)
}

// ProgressForExperience reports the level and the progress within it.
// At the level cap the bar stays full.
func ProgressForExperience(experience int64) Progress {
	level := LevelForExperience(experience)
	if level == MaxLevel {
		return Progress{Level: level, CurrentXP: ExperiencePerLevel, NeededXP: ExperiencePerLevel}
	}

	within := experience - int64(level-1)*ExperiencePerLevel
	if within < 0 {
		within = 0
	}
	return Progress{Level: level, CurrentXP: within, NeededXP: ExperiencePerLevel}
}

// ApplyPremiumMultiplier returns floor(base * 1.1) using integer arithmetic.
// Callers keep base at or below math.MaxInt64/PremiumMultiplierNumerator.
func ApplyPremiumMultiplier(base int64) int64 {
	return base * PremiumMultiplierNumerator / PremiumMultiplierDenominator
}
