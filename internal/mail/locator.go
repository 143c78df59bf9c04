package mail

import (
	"context"
	"fmt"
)

// Locator resolves folder roles for the account behind a Backend.
// It keeps no state of its own; a Backend may answer several roles from one
// lookup within a call.
type Locator struct{}

// Locate resolves role on backend. A missing folder is reported as a
// KindBackend error wrapping ErrFolderNotFound.
func (Locator) Locate(ctx context.Context, backend Backend, role Role) (FolderRef, error) {
	ref, err := backend.FolderByRole(ctx, role)
	if err != nil {
		return FolderRef{}, backendError("locate "+string(role), err)
	}
	if ref.ID == "" {
		return FolderRef{}, &Error{
			Kind: KindBackend,
			Op:   "locate " + string(role),
			Err:  fmt.Errorf("%w: no mailbox with role %q", ErrFolderNotFound, role),
		}
	}
	ref.Role = role
	return ref, nil
}
