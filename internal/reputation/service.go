package reputation

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service reconciles upstream exports into the store and reads aggregated
// views back out of it.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	mottoes []string
	now     func() time.Time
}

type Option func(*Service)

// WithMottoes replaces the mottoes accepted by the language gate.
func WithMottoes(mottoes []string) Option {
	return func(s *Service) {
		if len(mottoes) > 0 {
			s.mottoes = mottoes
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db:      db,
		log:     log,
		mottoes: DefaultMottoes,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
