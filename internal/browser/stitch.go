package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"formfill-mcp-server/internal/config"

	"go.uber.org/zap"
)

// Viewport is the slice of a live page the stitcher drives.
type Viewport interface {
	// Size returns the current inner viewport size in CSS pixels.
	Size(ctx context.Context) (width, height int, err error)
	// ContentSize returns the rendered document size.
	ContentSize(ctx context.Context) (width, height int, err error)
	// Resize sets the viewport and waits for layout to settle.
	Resize(ctx context.Context, width, height int) error
	// ScrollTo scrolls vertically and returns the offset the page actually settled at,
	// which is clamped near the bottom of the document.
	ScrollTo(ctx context.Context, y int) (int, error)
	// Capture returns a PNG of the visible viewport.
	Capture(ctx context.Context) ([]byte, error)
}

// Tile is one viewport capture at a scroll offset.
type Tile struct {
	Offset int
	Image  image.Image
}

// TileInfo describes where a tile landed on the composite.
type TileInfo struct {
	Index   int `json:"index"`
	Offset  int `json:"offset"`
	PasteY  int `json:"paste_y"`
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

// CaptureStats summarizes a finished capture.
type CaptureStats struct {
	Width         int        `json:"width"`
	ContentHeight int        `json:"content_height"`
	ViewportH     int        `json:"viewport_height"`
	SingleShot    bool       `json:"single_shot"`
	Tiles         []TileInfo `json:"tiles,omitempty"`
}

// Stitcher captures a whole document as one PNG regardless of its height.
type Stitcher struct {
	MaxWidth  int
	MaxHeight int
	Overlap   int
	logger    *zap.Logger
}

func NewStitcher(cfg config.ScreenshotConfig, logger *zap.Logger) *Stitcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stitcher{
		MaxWidth:  cfg.GetMaxWidth(),
		MaxHeight: cfg.GetMaxHeight(),
		Overlap:   cfg.Overlap,
		logger:    logger,
	}
}

// Capture writes a full-page image of vp to outputPath and restores the
// original viewport size afterwards.
func (s *Stitcher) Capture(ctx context.Context, vp Viewport, outputPath string) (CaptureStats, error) {
	var stats CaptureStats

	origW, origH, err := vp.Size(ctx)
	if err != nil {
		return stats, fmt.Errorf("read viewport: %w", err)
	}
	defer func() {
		if rerr := vp.Resize(context.WithoutCancel(ctx), origW, origH); rerr != nil {
			s.logger.Warn("restore viewport failed", zap.Int("width", origW), zap.Int("height", origH), zap.Error(rerr))
		}
	}()

	contentW, contentH, err := vp.ContentSize(ctx)
	if err != nil {
		return stats, fmt.Errorf("measure content: %w", err)
	}
	if contentW <= 0 || contentH <= 0 {
		return stats, fmt.Errorf("document has no renderable area (%dx%d)", contentW, contentH)
	}

	if err := vp.Resize(ctx, min(contentW, s.MaxWidth), min(contentH, s.MaxHeight)); err != nil {
		return stats, fmt.Errorf("resize viewport: %w", err)
	}
	viewW, viewH, err := vp.Size(ctx)
	if err != nil {
		return stats, fmt.Errorf("read settled viewport: %w", err)
	}
	stats.Width, stats.ContentHeight, stats.ViewportH = viewW, contentH, viewH
	s.logger.Debug("capturing page",
		zap.Int("content_width", contentW),
		zap.Int("content_height", contentH),
		zap.Int("viewport_width", viewW),
		zap.Int("viewport_height", viewH))

	if contentH <= viewH {
		shot, err := vp.Capture(ctx)
		if err != nil {
			return stats, fmt.Errorf("capture viewport: %w", err)
		}
		stats.SingleShot = true
		stats.Tiles = []TileInfo{{Index: 0, Rows: min(viewH, contentH)}}
		return stats, writeFile(outputPath, shot)
	}

	tiles, err := s.collect(ctx, vp, contentH, viewH)
	if err != nil {
		return stats, err
	}
	if _, err := vp.ScrollTo(ctx, 0); err != nil {
		s.logger.Debug("scroll back to top failed", zap.Error(err))
	}

	canvas, infos := composite(tiles, viewW, contentH)
	stats.Tiles = infos

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return stats, fmt.Errorf("encode composite: %w", err)
	}
	return stats, writeFile(outputPath, buf.Bytes())
}

func (s *Stitcher) collect(ctx context.Context, vp Viewport, contentH, viewH int) ([]Tile, error) {
	var tiles []Tile
	for i, want := range planOffsets(contentH, viewH, s.Overlap) {
		actual, err := vp.ScrollTo(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("scroll to %d: %w", want, err)
		}
		raw, err := vp.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture tile %d: %w", i, err)
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode tile %d: %w", i, err)
		}
		s.logger.Debug("tile captured", zap.Int("index", i), zap.Int("requested", want), zap.Int("offset", actual))
		tiles = append(tiles, Tile{Offset: actual, Image: img})
	}
	return tiles, nil
}

// planOffsets returns the scroll offsets to request. Each advance is the
// viewport height minus the overlap; the last offset is the first one whose
// tile reaches the end of the content.
func planOffsets(contentH, viewH, overlap int) []int {
	if contentH <= 0 || viewH <= 0 {
		return nil
	}
	step := max(viewH-overlap, 1)
	var offsets []int
	for pos := 0; ; pos += step {
		offsets = append(offsets, pos)
		if pos+viewH >= contentH {
			return offsets
		}
	}
}

// span is the part of a tile that gets pasted.
type span struct {
	dstY    int
	srcTop  int
	srcBot  int
	skipped bool
}

// pasteSpans computes, for tiles at the given offsets and heights, which rows
// of each one are pasted where. A tile never pastes above the bottom of the
// previous one and never below contentH.
func pasteSpans(offsets, heights []int, contentH int) []span {
	spans := make([]span, len(offsets))
	prevBottom := 0
	for i, off := range offsets {
		pasteY := max(off, prevBottom)
		top := pasteY - off
		bot := min(heights[i], contentH-off)
		if top >= bot {
			spans[i] = span{dstY: pasteY, srcTop: top, srcBot: top, skipped: true}
			continue
		}
		spans[i] = span{dstY: pasteY, srcTop: top, srcBot: bot}
		prevBottom = pasteY + (bot - top)
	}
	return spans
}

// composite pastes tiles onto a white canvas of width x contentH.
func composite(tiles []Tile, width, contentH int) (*image.RGBA, []TileInfo) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, contentH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offsets := make([]int, len(tiles))
	heights := make([]int, len(tiles))
	for i, t := range tiles {
		offsets[i] = t.Offset
		heights[i] = t.Image.Bounds().Dy()
	}

	infos := make([]TileInfo, len(tiles))
	for i, sp := range pasteSpans(offsets, heights, contentH) {
		infos[i] = TileInfo{Index: i, Offset: offsets[i], PasteY: sp.dstY, Skipped: sp.srcTop}
		if sp.skipped {
			continue
		}
		b := tiles[i].Image.Bounds()
		dst := image.Rect(0, sp.dstY, width, sp.dstY+(sp.srcBot-sp.srcTop))
		draw.Draw(canvas, dst, tiles[i].Image, image.Pt(b.Min.X, b.Min.Y+sp.srcTop), draw.Src)
		infos[i].Rows = sp.srcBot - sp.srcTop
	}
	return canvas, infos
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
