package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/rbright/recite/internal/hypr"
)

type hyprSurface struct{}

func (hyprSurface) show(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	return hypr.Notify(ctx, hypr.Notification{
		Icon:    icon,
		Timeout: time.Duration(timeoutMS) * time.Millisecond,
		Color:   color,
		Text:    text,
	})
}

func (hyprSurface) dismiss(ctx context.Context) error {
	return hypr.DismissNotify(ctx)
}

// desktopSurface replaces one freedesktop notification in place.
type desktopSurface struct {
	appName string

	mu sync.Mutex
	id uint32
}

func (d *desktopSurface) show(ctx context.Context, _ int, timeoutMS int, _ string, text string) error {
	d.mu.Lock()
	replaceID := d.id
	d.mu.Unlock()

	id, err := desktopNotify(ctx, d.appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return nil
}

func (d *desktopSurface) dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.id
	d.id = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}
