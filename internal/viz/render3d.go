package viz

import (
	"math"
	"sort"

	"github.com/san-kum/chaoskit/internal/vecmath"
)

// Camera manages 3D projection to a 2D plane.
type Camera struct {
	Position         vecmath.Vec3
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Position: vecmath.Vec3{Z: 5}, Near: 0.1, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// rotatePoint rotates a point around the camera's axes.
func (c *Camera) rotatePoint(p vecmath.Vec3) vecmath.Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project converts 3D world coordinates to 2D sub-pixel coordinates.
// Returns x, y, depth, and visibility.
func (c *Camera) Project(p vecmath.Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.rotatePoint(p).Scale(c.Zoom)
	dist := c.Position.Z
	if rot.Z >= dist-c.Near {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z)
	minDim := float64(sh)
	if float64(sw) < minDim {
		minDim = float64(sw)
	}
	pScale := minDim / 3.0
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type edge struct {
	start, end vecmath.Vec3
}

// Wireframe accumulates line segments for a single rendered frame.
type Wireframe struct{ edges []edge }

func NewWireframe() *Wireframe                 { return &Wireframe{} }
func (w *Wireframe) AddEdge(s, e vecmath.Vec3) { w.edges = append(w.edges, edge{s, e}) }
func (w *Wireframe) AddPoint(p vecmath.Vec3)   { w.edges = append(w.edges, edge{p, p}) }
func (w *Wireframe) Clear()                    { w.edges = w.edges[:0] }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe to the canvas back to front.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	sw, sh := c.Width*2, c.Height*4
	proj := make([]projectedEdge, 0, len(w.edges))
	for _, e := range w.edges {
		x1, y1, d1, v1 := cam.Project(e.start, sw, sh)
		x2, y2, d2, v2 := cam.Project(e.end, sw, sh)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}
