package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/engine"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

const (
	width         = 80
	height        = 24
	chartCapacity = 600
	eventCapacity = 5
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	eventStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	haltedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model drives an engine from the Bubble Tea event loop and renders its
// state onto a Braille canvas.
type Model struct {
	eng           *engine.Engine
	stepsPerFrame int

	width, height int
	canvas        *Canvas
	trail         []struct{ x, y int }
	trail3D       []vecmath.Vec3
	camera        *Camera

	running   bool
	paramKeys []string
	selected  int

	energyChart []float64
	eventLog    []string
	lastErr     string
	showHelp    bool
}

// NewModel wraps a ready engine. stepsPerFrame physics steps run per
// render tick.
func NewModel(eng *engine.Engine, stepsPerFrame int) Model {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}

	params := eng.System().Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "buckets" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Model{
		eng:           eng,
		stepsPerFrame: stepsPerFrame,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		trail:         make([]struct{ x, y int }, 0, 200),
		trail3D:       make([]vecmath.Vec3, 0, 500),
		camera:        NewCamera(),
		running:       true,
		paramKeys:     keys,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the engine.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.eng.Reset()
			m.trail = m.trail[:0]
			m.trail3D = m.trail3D[:0]
			m.energyChart = m.energyChart[:0]
			m.eventLog = m.eventLog[:0]
			m.lastErr = ""
		case "c":
			m.eng.SaveCheckpoint()
			m.logEvent(fmt.Sprintf("checkpoint saved at t=%.2f", m.eng.Time()))
		case "v":
			if m.eng.RestoreCheckpoint() {
				m.trail = m.trail[:0]
				m.trail3D = m.trail3D[:0]
				m.logEvent(fmt.Sprintf("rolled back to t=%.2f", m.eng.Time()))
			}
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "?":
			m.showHelp = !m.showHelp
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running && !m.eng.Halted() {
			m.step()
		}
		m.draw()
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	events, err := m.eng.Step(m.stepsPerFrame)
	for _, ev := range events {
		switch ev.Kind {
		case dynamo.EventMerge:
			m.logEvent(fmt.Sprintf("merge %s+%s m=%.2f", ev.Body1, ev.Body2, ev.CombinedMass))
		case dynamo.EventCheckpointRestored:
			m.logEvent(fmt.Sprintf("rollback to t=%.2f", ev.Time))
			m.trail = m.trail[:0]
			m.trail3D = m.trail3D[:0]
		}
	}
	if err != nil {
		m.lastErr = err.Error()
	}

	m.energyChart = append(m.energyChart, m.eng.Energy())
	if len(m.energyChart) > chartCapacity {
		m.energyChart = m.energyChart[1:]
	}
}

func (m *Model) logEvent(s string) {
	m.eventLog = append(m.eventLog, s)
	if len(m.eventLog) > eventCapacity {
		m.eventLog = m.eventLog[1:]
	}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.eng.System().Params()[key]
	if val == 0 {
		val = 1e-3
	}
	if err := m.eng.SetParam(key, val*factor); err != nil {
		m.lastErr = err.Error()
	}
}

// subpixel canvas dimensions and center.
func (m *Model) bounds() (int, int, int, int) {
	cw, ch := m.width*2, m.height*4
	return cw, ch, cw / 2, ch / 2
}

func (m *Model) draw() {
	m.canvas.Clear()
	switch m.eng.System().Kind() {
	case systems.KindNBody:
		m.drawNBody()
	case systems.KindDoublePendulum:
		m.drawDoublePendulum()
	case systems.KindLorenz:
		m.drawAttractor(0.04, func(s dynamo.State) vecmath.Vec3 {
			return vecmath.Vec3{X: s[0], Y: s[2] - 25, Z: s[1]}
		})
	case systems.KindRossler:
		m.drawAttractor(0.08, func(s dynamo.State) vecmath.Vec3 {
			return vecmath.Vec3{X: s[0], Y: s[2] * 0.5, Z: s[1]}
		})
	case systems.KindWaterwheel:
		m.drawWaterwheel()
	}
}

func (m *Model) drawNBody() {
	nb, ok := m.eng.System().(*systems.NBody)
	if !ok {
		return
	}
	cw, ch, cx, cy := m.bounds()
	scale := float64(ch) / 4.0

	for _, b := range nb.Bodies(m.eng.State()) {
		px := cx + int(b.Position.X*scale)
		py := cy - int(b.Position.Y*scale)
		if px < 0 || px >= cw || py < 0 || py >= ch {
			continue
		}
		m.trail = append(m.trail, struct{ x, y int }{px, py})
		r := 1 + int(math.Cbrt(b.Mass))
		m.canvas.FillDisc(px, py, r)
	}
	if len(m.trail) > 1000 {
		m.trail = m.trail[len(m.trail)-1000:]
	}
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}
}

func (m *Model) drawDoublePendulum() {
	state := m.eng.State()
	if len(state) < 4 {
		return
	}
	t1, t2 := state[0], state[2]
	_, ch, cx, _ := m.bounds()
	cy, length := 8, float64(ch)*0.4
	b1x, b1y := cx+int(length*math.Sin(t1)), cy+int(length*math.Cos(t1))
	b2x, b2y := b1x+int(length*math.Sin(t2)), b1y+int(length*math.Cos(t2))
	m.trail = append(m.trail, struct{ x, y int }{b2x, b2y})
	if len(m.trail) > 200 {
		m.trail = m.trail[1:]
	}
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}
	m.canvas.Set(cx, cy)
	m.canvas.DrawLine(cx, cy, b1x, b1y)
	m.canvas.FillDisc(b1x, b1y, 1)
	m.canvas.DrawLine(b1x, b1y, b2x, b2y)
	m.canvas.FillDisc(b2x, b2y, 1)
}

func (m *Model) drawAttractor(scale float64, point func(dynamo.State) vecmath.Vec3) {
	state := m.eng.State()
	if len(state) < 3 {
		return
	}
	p := point(state).Scale(scale)
	m.trail3D = append(m.trail3D, p)
	if len(m.trail3D) > 500 {
		m.trail3D = m.trail3D[1:]
	}
	wf := NewWireframe()
	for i := 1; i < len(m.trail3D); i++ {
		wf.AddEdge(m.trail3D[i-1], m.trail3D[i])
	}
	wf.AddPoint(p)
	// slow rotate unless the user has taken the camera
	if m.camera.RotX == 0 && m.camera.RotZ == 0 {
		m.camera.RotY += 0.005
	}
	Render3D(m.canvas, wf, m.camera)
}

func (m *Model) drawWaterwheel() {
	ww, ok := m.eng.System().(*systems.Waterwheel)
	if !ok {
		return
	}
	state := m.eng.State()
	if len(state) < 2 {
		return
	}
	theta := state[1]
	n := ww.NumBuckets
	_, ch, cx, cy := m.bounds()
	r := ch/2 - 6

	m.canvas.DrawCircle(cx, cy, r)
	for i := 0; i < n; i++ {
		a := theta + 2*math.Pi*float64(i)/float64(n)
		bx := cx + int(float64(r)*math.Sin(a))
		by := cy - int(float64(r)*math.Cos(a))
		mass := 0.0
		if 2+i < len(state) {
			mass = state[2+i]
		}
		m.canvas.FillDisc(bx, by, 1+int(mass))
	}
	// spout above the wheel
	m.canvas.DrawLine(cx-2, 0, cx-2, 3)
	m.canvas.DrawLine(cx+2, 0, cx+2, 3)
}

// View renders the TUI.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.eng.System().Kind().String())) + "\n")

	status := "RUNNING"
	if m.eng.Halted() {
		status = haltedStyle.Render("HALTED (press R to reset)")
	} else if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.energyChart) > 1 {
		chart := asciigraph.Plot(m.energyChart, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.eng.Time())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.eng.Steps())) + "\n")
	s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f", m.eng.Energy())) + "\n")
	s.WriteString(labelStyle.Render("Drift") + valueStyle.Render(fmt.Sprintf("%.4f%%", m.eng.DriftPct())) + "\n")
	if nb, ok := m.eng.System().(*systems.NBody); ok {
		s.WriteString(labelStyle.Render("Bodies") + valueStyle.Render(fmt.Sprintf("%d", nb.NumBodies())) + "\n")
	}
	if ct, cs, ok := m.eng.Checkpoint(); ok {
		s.WriteString(labelStyle.Render("Checkpoint") + valueStyle.Render(fmt.Sprintf("t=%.2f step=%d", ct, cs)) + "\n")
	}
	if c := m.eng.Validator().TotalCorrections(); c > 0 {
		s.WriteString(labelStyle.Render("Corrections") + valueStyle.Render(fmt.Sprintf("%d", c)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) > 0 {
		params := m.eng.System().Params()
		for i, k := range m.paramKeys {
			line := fmt.Sprintf("%-14s %.4f", k, params[k])
			if i == m.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	} else {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}

	if len(m.eventLog) > 0 {
		s.WriteString("\nEVENTS\n")
		for _, ev := range m.eventLog {
			s.WriteString(eventStyle.Render("  "+ev) + "\n")
		}
	}
	if m.lastErr != "" {
		s.WriteString("\n" + haltedStyle.Render(m.lastErr) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nC:Save V:Rollback ?:Help\nTab:Select ↑↓:Tune"))

	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  C        - Save checkpoint          ║
║  V        - Restore checkpoint       ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  X/Y/Z    - Rotate 3D camera         ║
║  +/-      - Zoom 3D camera           ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
