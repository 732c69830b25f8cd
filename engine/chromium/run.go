package chromium

import (
	"context"

	"github.com/chromedp/chromedp"
)

// run executes actions on the chromedp context tabCtx while honoring the
// caller's ctx. Cancelling ctx aborts the actions but leaves the tab alive.
func run(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// await performs the first Run on a fresh chromedp context, which allocates
// the browser or attaches the tab. That Run must use chromeCtx itself, so the
// caller's ctx is only used to stop waiting.
func await(ctx, chromeCtx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(chromeCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
