package connector

type ImportPhase string

const (
	PhasePending    ImportPhase = "pending"
	PhaseMapping    ImportPhase = "mapping"
	PhaseValidating ImportPhase = "validating"
	PhaseImporting  ImportPhase = "importing"
	PhaseCompleted  ImportPhase = "completed"
	PhaseFailed     ImportPhase = "failed"
)

// MaxProgressErrors caps the validation errors kept on a progress snapshot.
const MaxProgressErrors = 1000

// ImportProgress is the running tally of an import job.
type ImportProgress struct {
	Phase     ImportPhase       `json:"phase"`
	TotalRows int64             `json:"totalRows"`
	Processed int64             `json:"processedRows"`
	Imported  int64             `json:"importedRows"`
	Updated   int64             `json:"updatedRows"`
	Skipped   int64             `json:"skippedRows"`
	Errored   int64             `json:"errorRows"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// Reject counts a row as errored and keeps its validation errors.
func (p *ImportProgress) Reject(errs []ValidationError) {
	p.Processed++
	p.Errored++
	for _, e := range errs {
		if len(p.Errors) >= MaxProgressErrors {
			break
		}
		p.Errors = append(p.Errors, e)
	}
}

func (p *ImportProgress) Accept() {
	p.Processed++
	p.Imported++
}

func (p *ImportProgress) Skip() {
	p.Processed++
	p.Skipped++
}

// Percent reports completion, or 0 when the total is unknown.
func (p *ImportProgress) Percent() int {
	if p.TotalRows <= 0 {
		return 0
	}
	pct := int(p.Processed * 100 / p.TotalRows)
	if pct > 100 {
		pct = 100
	}
	return pct
}
