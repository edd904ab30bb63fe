package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Page is the set of primitives the navigator needs from a browser tab.
type Page interface {
	// Load navigates to url and waits for network idle, bounded by the
	// navigation timeout.
	Load(ctx context.Context, url string) error
	Sleep(ctx context.Context, d time.Duration) error
	Evaluate(ctx context.Context, expression string, result any) error
	// Click clicks the first tab, link or button whose text equals text and
	// reports whether such an element existed.
	Click(ctx context.Context, text string) (bool, error)
	HTML(ctx context.Context) (string, error)
}

const lifecycleNetworkIdle = "networkIdle"

// clickByText clicks the first matching element. Returns true when one was found.
const clickByText = `(function(text) {
	const candidates = document.querySelectorAll('a, button, li, [role="tab"]');
	for (const el of candidates) {
		if ((el.textContent || '').trim() === text) {
			el.click();
			return true;
		}
	}
	return false;
})(%s)`

type chromePage struct {
	tab     context.Context
	timeout time.Duration
}

// run executes actions on the tab while honouring cancellation of ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Load(ctx context.Context, url string) error {
	loadCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.run(loadCtx, enableLifecycle(), chromedp.ActionFunc(func(ctx context.Context) error {
		listenCtx, stopListening := context.WithCancel(ctx)
		defer stopListening()

		// The listener runs on the event loop and must never block.
		idle := make(chan *page.EventLifecycleEvent, 16)
		chromedp.ListenTarget(listenCtx, func(ev any) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && string(e.Name) == lifecycleNetworkIdle {
				select {
				case idle <- e:
				default:
				}
			}
		})

		frameID, loaderID, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error: %s", errorText)
		}

		for {
			select {
			case e := <-idle:
				if e.FrameID == frameID && e.LoaderID == loaderID {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

// enableLifecycle turns on page lifecycle events so networkIdle is reported.
func enableLifecycle() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return err
		}
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}
}

func (p *chromePage) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, result any) error {
	return p.run(ctx, chromedp.Evaluate(expression, result))
}

func (p *chromePage) Click(ctx context.Context, text string) (bool, error) {
	quoted, err := json.Marshal(text)
	if err != nil {
		return false, fmt.Errorf("failed to encode tab text: %w", err)
	}
	var clicked bool
	if err := p.Evaluate(ctx, fmt.Sprintf(clickByText, quoted), &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}
