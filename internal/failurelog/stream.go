package failurelog

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const pageSize = 100

// Stream appends failed keys to a Redis stream, one entry per key.
type Stream struct {
	r      ClientGetter
	stream string
	maxLen int64
}

func NewStream(r ClientGetter, stream string, maxLen int64) *Stream {
	return &Stream{r: r, stream: stream, maxLen: maxLen}
}

func (s *Stream) Append(ctx context.Context, key string) error {
	err := s.r.Get().XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]any{"key": key},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Each pages through the stream up to the entry that was last when it
// started, so keys re-appended during a replay are not read again.
func (s *Stream) Each(ctx context.Context, fn func(key string) error) error {
	last, err := s.r.Get().XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil {
		return fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}
	if len(last) == 0 {
		return nil
	}
	end := last[0].ID

	start := "-"
	for {
		msgs, err := s.r.Get().XRangeN(ctx, s.stream, start, end, pageSize).Result()
		if err != nil {
			return fmt.Errorf("xrange %s: %w", s.stream, err)
		}

		for _, m := range msgs {
			if m.ID == start {
				continue
			}
			key, ok := m.Values["key"].(string)
			if !ok || key == "" {
				continue
			}
			if err := fn(key); err != nil {
				return err
			}
		}

		if len(msgs) == 0 || msgs[len(msgs)-1].ID == end || msgs[len(msgs)-1].ID == start {
			return nil
		}
		start = msgs[len(msgs)-1].ID
	}
}
