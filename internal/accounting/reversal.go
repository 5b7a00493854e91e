package accounting

import (
	"context"
	"fmt"
	"time"
)

// BuildReversal returns the negating journal for original, dated date. The
// reversal keeps the source ref so both journals trace to one document.
func BuildReversal(original Journal, date time.Time) Journal {
	origID := original.ID
	rev := Journal{
		Date:       DateOf(date),
		Source:     original.Source,
		Reference:  original.Reference + " - Void",
		Narration:  "Reversal of " + original.Narration,
		Status:     JournalStatusPosted,
		ReversalOf: &origID,
		Lines:      make([]JournalLine, 0, len(original.Lines)),
	}
	for _, line := range original.Lines {
		rev.Lines = append(rev.Lines, JournalLine{
			AccountID:   line.AccountID,
			Description: "Reversal - " + line.Description,
			Amount:      line.Amount.Neg(),
			Currency:    line.Currency,
		})
	}
	return rev
}

// Reverse retires original and writes its reversal inside tx. The status
// change is a compare-and-set, so a concurrent void makes one side fail with
// a ConflictError.
func Reverse(ctx context.Context, tx TxRepository, original Journal, date time.Time) (Journal, error) {
	if original.IsReversal() {
		return Journal{}, &ConflictError{Entity: "journal", ID: original.ID, Reason: "reversal journals cannot be voided"}
	}
	if original.Status != JournalStatusPosted {
		return Journal{}, &ConflictError{Entity: "journal", ID: original.ID, Reason: fmt.Sprintf("journal is %s", original.Status)}
	}
	if len(original.Lines) == 0 {
		return Journal{}, fmt.Errorf("accounting: journal %d has no lines", original.ID)
	}
	if err := tx.CompareAndSetJournalStatus(ctx, original.ID, JournalStatusPosted, JournalStatusVoided); err != nil {
		return Journal{}, err
	}
	return tx.InsertJournal(ctx, BuildReversal(original, date))
}

// ReverseSource voids the originating journal of ref inside tx.
func ReverseSource(ctx context.Context, tx TxRepository, ref SourceRef, date time.Time) (Journal, Journal, error) {
	original, err := tx.FindOriginJournal(ctx, ref)
	if err != nil {
		return Journal{}, Journal{}, err
	}
	reversal, err := Reverse(ctx, tx, original, date)
	if err != nil {
		return Journal{}, Journal{}, err
	}
	original.Status = JournalStatusVoided
	return original, reversal, nil
}
