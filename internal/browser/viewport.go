package browser

import (
	"context"
	"math"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// pageViewport drives a rod page for the stitcher. Every layout change is
// followed by a repaint wait bounded by settle.
type pageViewport struct {
	page   *rod.Page
	settle time.Duration
}

const contentSizeJS = `() => {
	const b = document.body, d = document.documentElement;
	return {
		w: Math.max(b.scrollWidth, b.offsetWidth, d.clientWidth, d.scrollWidth, d.offsetWidth),
		h: Math.max(b.scrollHeight, b.offsetHeight, d.clientHeight, d.scrollHeight, d.offsetHeight),
	};
}`

func (v *pageViewport) Size(ctx context.Context) (int, int, error) {
	res, err := v.page.Context(ctx).Eval(`() => ({w: window.innerWidth, h: window.innerHeight})`)
	if err != nil {
		return 0, 0, stepErr(ctx, "read viewport size", err)
	}
	return res.Value.Get("w").Int(), res.Value.Get("h").Int(), nil
}

func (v *pageViewport) ContentSize(ctx context.Context) (int, int, error) {
	res, err := v.page.Context(ctx).Eval(contentSizeJS)
	if err != nil {
		return 0, 0, stepErr(ctx, "measure document", err)
	}
	return res.Value.Get("w").Int(), res.Value.Get("h").Int(), nil
}

func (v *pageViewport) Resize(ctx context.Context, width, height int) error {
	page := v.page.Context(ctx)
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return stepErr(ctx, "set viewport", err)
	}
	return v.waitSettled(ctx, "settle after resize")
}

func (v *pageViewport) ScrollTo(ctx context.Context, y int) (int, error) {
	page := v.page.Context(ctx)
	if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, y); err != nil {
		return 0, stepErr(ctx, "scroll", err)
	}
	if err := v.waitSettled(ctx, "settle after scroll"); err != nil {
		return 0, err
	}
	res, err := page.Eval(`() => window.scrollY`)
	if err != nil {
		return 0, stepErr(ctx, "read scroll offset", err)
	}
	return int(math.Round(res.Value.Num())), nil
}

func (v *pageViewport) Capture(ctx context.Context) ([]byte, error) {
	shot, err := v.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, stepErr(ctx, "screenshot", err)
	}
	return shot, nil
}

func (v *pageViewport) waitSettled(ctx context.Context, step string) error {
	settleCtx, cancel := context.WithTimeout(ctx, v.settle)
	defer cancel()
	if err := v.page.Context(settleCtx).WaitRepaint(); err != nil {
		return stepErr(settleCtx, step, err)
	}
	return nil
}
