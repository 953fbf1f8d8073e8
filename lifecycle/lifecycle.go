// Package lifecycle encodes the legal status transitions for an issue and
// the side-data each transition requires. It decides legality only;
// authorization is checked separately via Can.
package lifecycle

import (
	"civicx-be/apperr"
	"civicx-be/models"
)

// TransitionPatch is the closed set of fields an official may change when
// moving an issue between statuses. Unset pointers leave the stored fields
// untouched.
type TransitionPatch struct {
	Status             models.IssueStatus `json:"status"`
	ProgressFileID     *string            `json:"progressFileId,omitempty"`
	OfficialNote       *string            `json:"officialNote,omitempty"`
	ConfirmationFileID *string            `json:"confirmationFileId,omitempty"`
}

// allowed maps each status to the statuses reachable from it. resolved and
// rejected are terminal.
var allowed = map[models.IssueStatus][]models.IssueStatus{
	models.StatusPending:    {models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusInProgress: {models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {},
	models.StatusRejected:   {},
}

// Validate checks a requested transition against the current status.
// A same-status request is legal and should be treated by the caller as an
// idempotent no-op that fires no events.
func Validate(current models.IssueStatus, patch TransitionPatch) error {
	if !patch.Status.Valid() {
		return apperr.Newf(apperr.KindValidation, "unknown status %q", patch.Status)
	}
	if patch.Status == current {
		return nil
	}

	legal := false
	for _, next := range allowed[current] {
		if next == patch.Status {
			legal = true
			break
		}
	}
	if !legal {
		return apperr.Newf(apperr.KindInvalidTransition, "cannot move issue from %q to %q", current, patch.Status)
	}

	switch patch.Status {
	case models.StatusResolved:
		if patch.ConfirmationFileID == nil || *patch.ConfirmationFileID == "" {
			return apperr.New(apperr.KindMissingAttachment, "resolving an issue requires a confirmation photo")
		}
		if patch.ProgressFileID != nil {
			return apperr.New(apperr.KindValidation, "progressFileId is only accepted when moving to in_progress")
		}
	case models.StatusInProgress:
		if patch.ConfirmationFileID != nil {
			return apperr.New(apperr.KindValidation, "confirmationFileId is only accepted when resolving")
		}
	case models.StatusRejected:
		if patch.ConfirmationFileID != nil || patch.ProgressFileID != nil {
			return apperr.New(apperr.KindValidation, "rejected issues accept only an official note")
		}
	}

	return nil
}

// Apply merges a validated patch into the issue. Only the fields the target
// status accepts are written; everything else is preserved.
func Apply(issue *models.Issue, patch TransitionPatch) {
	issue.Status = patch.Status
	switch patch.Status {
	case models.StatusInProgress:
		if patch.ProgressFileID != nil {
			issue.ProgressFileID = patch.ProgressFileID
		}
		if patch.OfficialNote != nil {
			issue.OfficialNote = patch.OfficialNote
		}
	case models.StatusResolved:
		issue.ConfirmationFileID = patch.ConfirmationFileID
	case models.StatusRejected:
		if patch.OfficialNote != nil {
			issue.OfficialNote = patch.OfficialNote
		}
	}
}
