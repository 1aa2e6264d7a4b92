package griddy

import "github.com/google/uuid"

// CycleReport summarizes one scheduling cycle for metrics and logging.
type CycleReport struct {
	CycleID        uuid.UUID
	OptTimeMS      float64
	Confidence     float64
	DispatchCount  int
	UnmetTotalAmps float64
	Escalated      bool
	Failed         bool
}
