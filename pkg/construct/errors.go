package construct

import (
	"errors"
	"fmt"
)

// DuplicateIDError reports an attempt to attach a child under an id
// already taken by one of its siblings.
type DuplicateIDError struct {
	// OwnerPath is the tree path of the owner the attachment targeted.
	OwnerPath string
	// ID is the contested identifier.
	ID string
}

func (e *DuplicateIDError) Error() string {
	if e.OwnerPath == "" {
		return fmt.Sprintf("duplicate construct id %q at the tree root", e.ID)
	}
	return fmt.Sprintf("duplicate construct id %q under %q", e.ID, e.OwnerPath)
}

// IsDuplicateID reports whether err or any error in its chain is a
// *DuplicateIDError.
func IsDuplicateID(err error) bool {
	var dup *DuplicateIDError
	return errors.As(err, &dup)
}
