package infra

import (
	"time"

	"github.com/google/uuid"
)

// UUIDGenerator implementa domain.IDGenerator com UUID v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SystemClock implementa domain.Clock com o relógio do processo.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
