package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// DefaultFollowInterval is how often Follow polls the aggregate file.
const DefaultFollowInterval = 250 * time.Millisecond

// Follow copies bytes appended to the aggregate file after offset into w
// until ctx is done. A file that shrinks or disappears restarts the copy from
// the beginning once it is written again.
func Follow(ctx context.Context, aggregatePath string, offset int64, w io.Writer, every time.Duration) error {
	if every <= 0 {
		every = DefaultFollowInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		data, next, err := readSince(aggregatePath, offset)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		offset = next
	}
}

func readSince(aggregatePath string, offset int64) ([]byte, int64, error) {
	f, err := os.Open(aggregatePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	lock := flock.New(aggregatePath)
	if err := lock.RLock(); err != nil {
		return nil, offset, fmt.Errorf("lock aggregate file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	size := info.Size()
	if size < offset {
		offset = 0
	}
	if size == offset {
		return nil, offset, nil
	}
	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, offset, fmt.Errorf("read aggregate file: %w", err)
	}
	return buf, size, nil
}
