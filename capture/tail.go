package capture

import (
	"context"
	"io"
	"io/ioutil"
	stdlog "log"
	"strings"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
)

// TailSource reads newline-delimited JSON events from a file, such as the
// event log a browser extension or a Cypress task appends to. With Follow
// set the file is followed until ctx is cancelled; otherwise Run returns at
// end of file.
type TailSource struct {
	Path   string
	Follow bool
	// Poll uses stat polling instead of inotify when following.
	Poll bool
}

// Run implements Source.
func (s *TailSource) Run(ctx context.Context, out chan<- Event) error {
	logger := logging.NewLogger("capture")

	t, err := tail.TailFile(s.Path, tail.Config{
		Follow:    s.Follow,
		ReOpen:    s.Follow,
		Poll:      s.Poll,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(ioutil.Discard, "", 0),
	})
	if err != nil {
		return errors.FileNotReadable(s.Path, err)
	}
	defer t.Cleanup()

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Wait(); err != nil {
					return errors.Transient("read event file", err).WithDetail("path", s.Path)
				}
				return nil
			}
			lineNo++
			if line.Err != nil {
				logger.WithError(line.Err).WithField("path", s.Path).Debug("Error reading event line")
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			ev, err := DecodeEvent([]byte(text))
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"path": s.Path,
					"line": lineNo,
				}).Warn("Skipping malformed event")
				continue
			}
			if !send(ctx, out, ev) {
				t.Stop()
				return nil
			}
		}
	}
}
