package docstore

import "context"

// DocRef names a single document.
type DocRef struct {
	Collection string
	ID         string
}

// UpdatePair applies coupled field updates to exactly two documents as one
// all-or-nothing commit, so a reader never observes one updated without the
// other. Both documents are read first; a NotFound error names whichever is
// missing. A non-nil check runs after both reads and can veto the commit —
// assignment uses it to re-validate the driver is still available, closing
// the window where two concurrent searches pick the same driver.
func UpdatePair(ctx context.Context, s Store, a DocRef, aFields map[string]any, b DocRef, bFields map[string]any, check func(a, b Document) error) error {
	return s.RunTransaction(ctx, func(tx Txn) error {
		aDoc, err := tx.Get(a.Collection, a.ID)
		if err != nil {
			return err
		}
		bDoc, err := tx.Get(b.Collection, b.ID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(aDoc, bDoc); err != nil {
				return err
			}
		}
		tx.Update(a.Collection, a.ID, aFields)
		tx.Update(b.Collection, b.ID, bFields)
		return nil
	})
}
