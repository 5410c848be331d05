package scoring

const (
	LevelAbsent     = "Absent"
	LevelEmerging   = "Emerging"
	LevelDeveloping = "Developing"
	LevelAdvanced   = "Advanced"
	LevelLeading    = "Leading"
)

// MaturityLevel bands a 0-100 percentage for reporting.
func MaturityLevel(percentage float64) string {
	switch {
	case percentage < 20:
		return LevelAbsent
	case percentage < 40:
		return LevelEmerging
	case percentage < 60:
		return LevelDeveloping
	case percentage < 80:
		return LevelAdvanced
	default:
		return LevelLeading
	}
}
