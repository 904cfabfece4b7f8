package network

import (
	"math"
	"math/rand"
)

// Point is a 2-D layout coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout computes a Fruchterman–Reingold spring layout for the graph,
// deterministic for a given seed, with coordinates rescaled to [-1, 1]².
func Layout(gr *Graph, seed int64, iterations int) []Point {
	n := gr.N
	pos := make([]Point, n)
	if n == 0 {
		return pos
	}
	if n == 1 {
		return pos // single node at the origin
	}

	rng := rand.New(rand.NewSource(seed))
	for i := range pos {
		pos[i] = Point{X: rng.Float64()*2.0 - 1.0, Y: rng.Float64()*2.0 - 1.0}
	}

	adj := gr.Adjacency()
	k := math.Sqrt(4.0 / float64(n)) // optimal pair distance over a 2x2 area
	temp := 0.1

	for iter := 0; iter < iterations; iter++ {
		dispX := make([]float64, n)
		dispY := make([]float64, n)

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pos[i].X - pos[j].X
				dy := pos[i].Y - pos[j].Y
				dist := math.Hypot(dx, dy)
				if dist < 1e-9 {
					dist = 1e-9
					dx = 1e-9
				}
				f := k * k / dist
				dispX[i] += dx / dist * f
				dispY[i] += dy / dist * f
				dispX[j] -= dx / dist * f
				dispY[j] -= dy / dist * f
			}
		}

		for i := 0; i < n; i++ {
			for _, j := range adj[i] {
				if j <= i {
					continue
				}
				dx := pos[i].X - pos[j].X
				dy := pos[i].Y - pos[j].Y
				dist := math.Hypot(dx, dy)
				if dist < 1e-9 {
					continue
				}
				f := dist * dist / k
				dispX[i] -= dx / dist * f
				dispY[i] -= dy / dist * f
				dispX[j] += dx / dist * f
				dispY[j] += dy / dist * f
			}
		}

		for i := 0; i < n; i++ {
			d := math.Hypot(dispX[i], dispY[i])
			if d < 1e-9 {
				continue
			}
			step := math.Min(d, temp)
			pos[i].X += dispX[i] / d * step
			pos[i].Y += dispY[i] / d * step
		}

		temp -= 0.1 / float64(iterations)
	}

	rescale(pos)
	return pos
}

// rescale maps positions into [-1, 1]² preserving aspect ratio per axis.
func rescale(pos []Point) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pos {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	spanX := maxX - minX
	spanY := maxY - minY
	for i := range pos {
		if spanX > 1e-9 {
			pos[i].X = (pos[i].X-minX)/spanX*2.0 - 1.0
		} else {
			pos[i].X = 0
		}
		if spanY > 1e-9 {
			pos[i].Y = (pos[i].Y-minY)/spanY*2.0 - 1.0
		} else {
			pos[i].Y = 0
		}
	}
}
