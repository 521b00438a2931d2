package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cavaliercoder/grab"

	"github.com/airbusgeo/eo-pipeline/service"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

// displayProgress logs the progress of a grab download every progressPeriod (0.05 = 5%)
func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

// progressWriter counts the bytes written and logs the progress every period (0.05 = 5%) of size.
// If size is unknown (<=0), nothing is logged.
type progressWriter struct {
	ctx      context.Context
	prefix   string
	size     int64
	written  int64
	period   float64
	progress float64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.size > 0 {
		if current := float64(pw.written) / float64(pw.size); current >= pw.progress+pw.period {
			pw.progress = current
			log.Logger(pw.ctx).Sugar().Debugf("%s: %.2f%% %s/%s", pw.prefix, 100*current, fmtBytes(pw.written), fmtBytes(pw.size))
		}
	}
	return len(p), nil
}

// copyToFile copies r to the file dst (created or truncated), logging the progress
func copyToFile(ctx context.Context, prefix string, r io.Reader, size int64, dst string) (int64, error) {
	f, err := os.Create(dst)
	if err != nil {
		return 0, service.MakeFatal(fmt.Errorf("copyToFile.Create: %w", err))
	}
	n, err := io.Copy(f, io.TeeReader(r, &progressWriter{ctx: ctx, prefix: prefix, size: size, period: 0.05}))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, service.MakeTemporary(fmt.Errorf("copyToFile.Copy: %w", err))
	}
	if size > 0 && n != size {
		return n, service.MakeTemporary(fmt.Errorf("copyToFile: incomplete file: %d/%d bytes", n, size))
	}
	return n, nil
}
