package viewer

import (
	"context"

	"github.com/jonboulle/clockwork"
)

// Play rewinds the cursor to the first timestamp and starts advancing it one
// step per playback interval. Calling Play while already playing is a no-op.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.playing {
		s.startPlaybackLocked()
		s.notifyLocked()
	}
	return nil
}

// Pause stops advancing the cursor and leaves it where it is.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.playing {
		s.stopPlaybackLocked()
		s.logger.Debug("playback paused", "cursor", s.cursor)
		s.notifyLocked()
	}
	return nil
}

// TogglePlayback pauses when playing and plays otherwise. Concurrent toggles
// alternate; none is lost.
func (s *Session) TogglePlayback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.playing {
		s.stopPlaybackLocked()
		s.logger.Debug("playback paused", "cursor", s.cursor)
	} else {
		s.startPlaybackLocked()
	}
	s.notifyLocked()
	return nil
}

func (s *Session) startPlaybackLocked() {
	s.playing = true
	s.cursor = 0
	s.playToken++
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.stopTicker = cancel
	ticker := s.clock.NewTicker(s.interval)

	s.wg.Add(1)
	go s.runTicker(ctx, ticker, s.playToken)

	s.metrics.PlaybackActive.Set(1)
	s.logger.Debug("playback started", "interval", s.interval, "timeline_length", s.timeline.Len())
}

func (s *Session) stopPlaybackLocked() {
	s.playing = false
	s.playToken++
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
	s.metrics.PlaybackActive.Set(0)
}

func (s *Session) runTicker(ctx context.Context, ticker clockwork.Ticker, token uint64) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.tick(token)
		}
	}
}

// tick advances the cursor by one while the timeline has room. Playback stays
// on once the end is reached; the cursor just holds. A tick from a ticker that
// has since been stopped is ignored.
func (s *Session) tick(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.playing || token != s.playToken {
		return
	}
	if s.cursor >= s.timeline.LastIndex() {
		return
	}
	s.cursor++
	s.metrics.AnimationTicks.Inc()
	s.notifyLocked()
}
