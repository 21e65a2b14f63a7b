package cli

import (
	"context"
	"strings"

	"github.com/brightroot/academy/internal/client/session"
)

// Profile edits display name, grade and subjects of the signed-in user.
func (a *App) Profile(ctx context.Context) error {
	snap := a.store.Snapshot()
	if snap.Identity == nil {
		a.say(session.MsgNotAuthenticated)
		return session.ErrNotAuthenticated
	}
	current := snap.Identity

	var upd session.ProfileUpdate

	name, changed, err := GetEditedText(a.reader, "Display name", current.DisplayName, a.out)
	if err != nil {
		return err
	}
	if changed {
		upd.DisplayName = &name
	}

	grade, changed, err := GetEditedText(a.reader, "Grade", current.Grade, a.out)
	if err != nil {
		return err
	}
	if changed {
		upd.Grade = &grade
	}

	subjects, changed, err := GetEditedText(a.reader, "Subjects (comma-separated)", strings.Join(current.Subjects, ", "), a.out)
	if err != nil {
		return err
	}
	if changed {
		upd.Subjects = splitList(subjects)
	}

	if upd.DisplayName == nil && upd.Grade == nil && upd.Subjects == nil {
		a.say("Nothing to update")
		return nil
	}

	if _, err := a.store.UpdateProfile(ctx, upd); err != nil {
		a.say(err.Error())
		return err
	}
	a.say("Profile updated")
	return nil
}
