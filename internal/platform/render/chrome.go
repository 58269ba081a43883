package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
)

// ChromeRenderer prints statements to PDF with a headless Chrome shared by all calls
type ChromeRenderer struct {
	logger      *slog.Logger
	timeout     time.Duration
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

func NewChromeRenderer(logger *slog.Logger, timeout time.Duration) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeRenderer{
		logger:      logger,
		timeout:     timeout,
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
	}
}

// PDF renders s on US Letter paper
func (r *ChromeRenderer) PDF(ctx context.Context, s *statement.Snapshot) ([]byte, error) {
	var html bytes.Buffer
	if err := StatementHTML(&html, s); err != nil {
		return nil, fmt.Errorf("failed to render statement html: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// stop the tab when the caller goes away
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		r.logger.Error("Failed to print statement", "bol_id", s.BOL.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to print statement: %w", err)
	}

	r.logger.Debug("Statement printed", "bol_id", s.BOL.ID.String(), "bytes", len(pdf))
	return pdf, nil
}

// Close stops the browser
func (r *ChromeRenderer) Close() {
	r.cancelAlloc()
}
