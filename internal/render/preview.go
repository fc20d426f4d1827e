// Package render draws game snapshots to images. It only ever reads
// immutable snapshots, so it never contends with the simulation.
package render

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"

	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

// SnapshotSource is an interface for getting game snapshots
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// paddle colours, picked per player by id hash
var palette = []color.RGBA{
	{66, 135, 245, 255},
	{245, 93, 66, 255},
	{76, 201, 112, 255},
	{240, 196, 25, 255},
	{171, 92, 230, 255},
	{33, 196, 196, 255},
	{232, 106, 177, 255},
	{140, 140, 150, 255},
}

// Preview renders the latest snapshot as a PNG, re-rendering only when a
// newer snapshot has been published.
type Preview struct {
	source SnapshotSource

	mu       sync.Mutex
	cacheSeq uint64
	cache    []byte
}

// NewPreview creates a preview renderer over source
func NewPreview(source SnapshotSource) *Preview {
	return &Preview{source: source}
}

// PNG returns the encoded image of the current snapshot
func (p *Preview) PNG() ([]byte, error) {
	snap := p.source.GetSnapshot()
	if snap == nil {
		return nil, fmt.Errorf("no snapshot published yet")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil && p.cacheSeq == snap.Sequence {
		return p.cache, nil
	}

	dc := drawContext(snap)
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}

	p.cache = buf.Bytes()
	p.cacheSeq = snap.Sequence
	return p.cache, nil
}

// Draw renders a snapshot at arena resolution
func Draw(snap *game.GameSnapshot) image.Image {
	return drawContext(snap).Image()
}

func drawContext(snap *game.GameSnapshot) *gg.Context {
	w := int(math.Max(1, snap.Arena.Width))
	h := int(math.Max(1, snap.Arena.Height))
	dc := gg.NewContext(w, h)

	drawBackground(dc, float64(w), float64(h))
	drawGoal(dc, snap.Goal)
	for _, pl := range snap.Players {
		drawPaddle(dc, pl, snap.Paddle, pl.ID == snap.LastHit)
	}
	drawBall(dc, snap.Ball)
	drawHUD(dc, snap)

	return dc
}

func drawBackground(dc *gg.Context, w, h float64) {
	dc.SetColor(color.RGBA{14, 16, 30, 255})
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// Floor line
	dc.SetColor(color.RGBA{200, 60, 60, 180})
	dc.SetLineWidth(3)
	dc.DrawLine(0, h-1.5, w, h-1.5)
	dc.Stroke()
}

func drawGoal(dc *gg.Context, g game.GoalView) {
	dc.SetColor(color.RGBA{76, 201, 112, 90})
	dc.DrawRectangle(g.X-g.Depth, g.Y-g.HalfHeight, g.Depth, 2*g.HalfHeight)
	dc.Fill()

	dc.SetColor(color.RGBA{76, 201, 112, 255})
	dc.SetLineWidth(4)
	dc.DrawLine(g.X, g.Y-g.HalfHeight, g.X, g.Y+g.HalfHeight)
	dc.Stroke()
}

func drawPaddle(dc *gg.Context, pl game.PlayerView, geom game.PaddleGeometry, lastHit bool) {
	cx, cy := pl.X, pl.Y-geom.Offset

	dc.Push()
	dc.RotateAbout(pl.Rotation, cx, cy)
	dc.SetColor(playerColor(pl.ID))
	dc.DrawRectangle(cx-geom.Width/2, cy-geom.Height/2, geom.Width, geom.Height)
	dc.Fill()
	if lastHit {
		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.DrawRectangle(cx-geom.Width/2, cy-geom.Height/2, geom.Width, geom.Height)
		dc.Stroke()
	}
	dc.Pop()

	label := pl.Name
	if label == "" && len(pl.ID) >= 6 {
		label = pl.ID[:6]
	}
	dc.SetColor(color.RGBA{220, 220, 230, 255})
	dc.DrawStringAnchored(label, pl.X, pl.Y+12, 0.5, 0.5)
}

func drawBall(dc *gg.Context, b game.BallView) {
	dc.SetColor(color.RGBA{250, 250, 255, 255})
	dc.DrawCircle(b.X, b.Y, b.Radius)
	dc.Fill()
}

func drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("rally %d", snap.Rally), 12, 20)

	y := 40.0
	for _, pl := range snap.Players {
		name := pl.Name
		if name == "" {
			name = pl.ID
		}
		dc.SetColor(playerColor(pl.ID))
		dc.DrawString(fmt.Sprintf("%s  %d  x%d", name, pl.Score, pl.Combo), 12, y)
		y += 16
	}
}

func playerColor(id string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}
