package library

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
)

// snapshot is one published corpus version. Its index is closed once the
// snapshot has been replaced and the last query using it has released it.
type snapshot struct {
	corpus    *corpus.Corpus
	index     *index.Index
	extractor *snippet.Extractor
	version   uint64
	loadedAt  time.Time

	refs      atomic.Int64
	retired   atomic.Bool
	closeOnce sync.Once
	logger    *slog.Logger
}

func newSnapshot(c *corpus.Corpus, ix *index.Index, version uint64, logger *slog.Logger) *snapshot {
	return &snapshot{
		corpus:    c,
		index:     ix,
		extractor: snippet.NewExtractor(c),
		version:   version,
		loadedAt:  time.Now(),
		logger:    logger,
	}
}

func (s *snapshot) release() {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		s.close()
	}
}

// retire marks s as replaced. It is closed now if idle, otherwise by the
// last release.
func (s *snapshot) retire() {
	s.retired.Store(true)
	if s.refs.Load() == 0 {
		s.close()
	}
}

func (s *snapshot) close() {
	s.closeOnce.Do(func() {
		if err := s.index.Close(); err != nil {
			s.logger.Warn("failed to close retired index",
				slog.Uint64("version", s.version),
				slog.String("error", err.Error()))
		}
	})
}
