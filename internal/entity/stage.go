package entity

// Stage is a named point of the lead pipeline.
type Stage string

const (
	StageNew           Stage = "NEW"
	StageProspecting   Stage = "PROSPECTING"
	StageContacted     Stage = "CONTACTED"
	StageQualified     Stage = "QUALIFIED"
	StageProposalSent  Stage = "PROPOSAL_SENT"
	StagePendingCRM    Stage = "PENDING_CRM"
	StageCRMApproved   Stage = "CRM_APPROVED"
	StagePendingAdmin  Stage = "PENDING_ADMIN"
	StageNegotiation   Stage = "NEGOTIATION"
	StageDocumentation Stage = "DOCUMENTATION"
	StageWon           Stage = "WON"

	// StageLost is a side exit reachable from any non-terminal stage. It is not
	// part of the ranked pipeline, so NextStage never returns it and
	// IsValidStage rejects it.
	StageLost Stage = "LOST"

	// StatusActiveLegacy is held by rows imported from the old CRM. Those leads
	// may still be moved into the pipeline but nothing moves a lead into it.
	StatusActiveLegacy Stage = "ACTIVE"
)

// pipeline holds the ranked stages; rank == index.
var pipeline = []Stage{
	StageNew,
	StageProspecting,
	StageContacted,
	StageQualified,
	StageProposalSent,
	StagePendingCRM,
	StageCRMApproved,
	StagePendingAdmin,
	StageNegotiation,
	StageDocumentation,
	StageWon,
}

var stageLabels = map[Stage]string{
	StageNew:           "Nou",
	StageProspecting:   "Prospecció",
	StageContacted:     "Contactat",
	StageQualified:     "Qualificat",
	StageProposalSent:  "Proposta enviada",
	StagePendingCRM:    "Pendent de verificació CRM",
	StageCRMApproved:   "Aprovat per CRM",
	StagePendingAdmin:  "Pendent d'aprovació Admin",
	StageNegotiation:   "Negociació",
	StageDocumentation: "Documentació",
	StageWon:           "Guanyat",
	StageLost:          "Perdut",
	StatusActiveLegacy: "Actiu",
}

// Stages returns a copy of the ranked pipeline.
func Stages() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// IsValidStage reports whether name is exactly one of the ranked stage names.
func IsValidStage(name string) bool {
	_, ok := StageRank(name)
	return ok
}

// StageRank returns the pipeline position of name.
func StageRank(name string) (int, bool) {
	for i, s := range pipeline {
		if string(s) == name {
			return i, true
		}
	}
	return -1, false
}

// NextStage returns the stage right after current, or false when current is
// unknown or already the last one.
func NextStage(current string) (Stage, bool) {
	rank, ok := StageRank(current)
	if !ok || rank == len(pipeline)-1 {
		return "", false
	}
	return pipeline[rank+1], true
}

// StageLabel falls back to the raw code for unmapped stages.
func StageLabel(stage string) string {
	if label, ok := stageLabels[Stage(stage)]; ok {
		return label
	}
	return stage
}

// IsKnownStatus accepts every value a persisted lead status may hold: the ranked
// stages, the LOST exit and the legacy ACTIVE status.
func IsKnownStatus(status string) bool {
	s := Stage(status)
	return IsValidStage(status) || s == StageLost || s == StatusActiveLegacy
}

// IsTerminal reports whether no transition may leave status.
func IsTerminal(status string) bool {
	s := Stage(status)
	return s == StageWon || s == StageLost
}
