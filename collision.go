package main

// CheckCollision checks if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// Contact describes how far circle b penetrates circle a
type Contact struct {
	Normal  Vec     // unit vector from a's centre toward b's centre
	Overlap float64 // penetration depth along Normal
}

// CircleContact returns the contact between circle a and circle b when their
// centres are strictly closer than the sum of the radii. fallback is used as
// the normal when the centres coincide.
func CircleContact(a Vec, ra float64, b Vec, rb float64, fallback Vec) (Contact, bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := Distance(a.X, a.Y, b.X, b.Y)
	minDist := ra + rb
	if dist >= minDist {
		return Contact{}, false
	}
	if dist == 0 {
		return Contact{Normal: fallback, Overlap: minDist}, true
	}
	return Contact{
		Normal:  Vec{X: dx / dist, Y: dy / dist},
		Overlap: minDist - dist,
	}, true
}

// inGoalMouth reports whether x lies strictly inside the gap in the back wall
func inGoalMouth(x float64) bool {
	return x > goalMouthLeft && x < goalMouthRight
}
