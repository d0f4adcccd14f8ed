package services

import "github.com/eventhub/backend/services/marketplace-service/models"

// StatusFacts are the wizard steps a request has completed.
type StatusFacts struct {
	PackageSelected    bool
	ServicesSelected   bool
	ActiveConsultation bool
}

var statusRank = map[models.RequestStatus]int{
	models.StatusPending:          0,
	models.StatusPackageSelected:  1,
	models.StatusServicesSelected: 2,
	models.StatusScheduled:        3,
	models.StatusConfirmed:        4,
}

// DeriveStatus returns the status for the furthest completed step. It never
// moves a request backwards and leaves terminal states alone.
func DeriveStatus(current models.RequestStatus, facts StatusFacts) models.RequestStatus {
	if current.IsTerminal() {
		return current
	}

	derived := models.StatusPending
	switch {
	case facts.ActiveConsultation:
		derived = models.StatusScheduled
	case facts.ServicesSelected:
		derived = models.StatusServicesSelected
	case facts.PackageSelected:
		derived = models.StatusPackageSelected
	}

	if statusRank[derived] > statusRank[current] {
		return derived
	}
	return current
}

// CanTransition reports whether an explicit status change is allowed: forward
// moves, or cancellation of a non-terminal request.
func CanTransition(from, to models.RequestStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == models.StatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}
