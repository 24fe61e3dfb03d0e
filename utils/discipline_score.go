package utils

import "math"

// DisciplineScore turns a user's engagement into the single number shown
// on their profile and cached in users.total_points. The streak dominates:
// keeping under the goal for consecutive days is worth quadratically more
// than raw logging volume.
func DisciplineScore(currentStreak, daysLogged, achievementsCount int) float64 {
	streakScore := math.Pow(float64(currentStreak), 2) * 0.3
	daysScore := float64(daysLogged) * 0.05
	achievementScore := float64(achievementsCount) * 1.0

	return streakScore + daysScore + achievementScore
}
