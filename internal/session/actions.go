package session

import (
	"context"
	"log/slog"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/notify"
	"costtracker/internal/remote"
	"costtracker/internal/state"
)

func (c *Controller) SignIn(ctx context.Context, email, password string) (core.User, error) {
	return c.authenticate(ctx, "sign in", "Logged in successfully!", func() (core.User, error) {
		return c.auth.SignIn(ctx, email, password)
	})
}

func (c *Controller) SignUp(ctx context.Context, email, password string) (core.User, error) {
	return c.authenticate(ctx, "sign up", "Signed up successfully!", func() (core.User, error) {
		return c.auth.SignUp(ctx, email, password)
	})
}

// authenticate returns once the listener's identity has been applied.
func (c *Controller) authenticate(ctx context.Context, op, success string, call func() (core.User, error)) (core.User, error) {
	u, err := call()
	if err != nil {
		return core.User{}, c.fail(ctx, core.NewError(core.KindAuth, op, err))
	}
	err = c.await(ctx, func() bool {
		cur, ok := c.state.User()
		return ok && cur.UID == u.UID
	})
	if err != nil {
		return core.User{}, c.fail(ctx, core.NewError(core.KindAuth, op, err))
	}
	notify.Send(ctx, c.notifier, notify.Success(success))
	return u, nil
}

// SignOut signs out remotely, then clears local state.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		return c.fail(ctx, core.NewError(core.KindAuth, "sign out", err))
	}
	if err := c.do(ctx, c.clear); err != nil {
		return c.fail(ctx, core.NewError(core.KindAuth, "sign out", err))
	}
	notify.Send(ctx, c.notifier, notify.Success("Logged out successfully!"))
	return nil
}

func (c *Controller) fail(ctx context.Context, err *core.Error) error {
	c.logger.WarnContext(ctx, "Operation failed",
		slog.String(applog.FieldOperation, err.Op),
		slog.String(applog.FieldErrorKind, string(err.Kind)),
		slog.String(applog.FieldError, err.Error()))
	notify.Send(ctx, c.notifier, notify.Failure("Error", err))
	return err
}

// commit performs a remote write for the signed-in user and applies its
// optimistic effect once confirmed. The effect is skipped if the identity
// changed in the meantime.
func (c *Controller) commit(ctx context.Context, op, success string, write func(uid string) (remote.Revision, error), apply func(rev remote.Revision)) error {
	u, ok := c.state.User()
	if !ok {
		return c.fail(ctx, core.NewError(core.KindAuth, op, errSignedOut))
	}

	rev, err := write(u.UID)
	if err != nil {
		return c.fail(ctx, core.NewError(core.KindWrite, op, err))
	}

	err = c.do(ctx, func() {
		if cur, ok := c.state.User(); ok && cur.UID == u.UID {
			apply(rev)
		}
	})
	if err != nil {
		return c.fail(ctx, core.NewError(core.KindWrite, op, err))
	}

	c.logger.InfoContext(ctx, "Remote write applied",
		slog.String(applog.FieldOperation, op),
		slog.String(applog.FieldUserID, u.UID),
		slog.Int64(applog.FieldRevision, int64(rev)))
	notify.Send(ctx, c.notifier, notify.Success(success))
	return nil
}

func invalid(op string, err error) error {
	return core.NewError(core.KindValidation, op, err)
}

func (c *Controller) AddItem(ctx context.Context, name string, cost float64) (core.Item, error) {
	rec := core.Item{Name: name, Cost: cost}
	if err := rec.Validate(); err != nil {
		return core.Item{}, invalid("add item", err)
	}
	err := c.commit(ctx, "add item", "Item added!",
		func(uid string) (remote.Revision, error) {
			id, rev, err := c.remote.Create(ctx, uid, remote.Items, remote.Fields{Label: name, Value: cost})
			rec.ID = id
			return rev, err
		},
		func(rev remote.Revision) {
			rec.CreatedAt = core.FormatTimestamp(c.now())
			c.state.Items.ApplyWrite(rev, state.Upsert(rec))
		})
	return rec, err
}

func (c *Controller) UpdateItem(ctx context.Context, id, name string, cost float64) (core.Item, error) {
	rec := core.Item{ID: id, Name: name, Cost: cost}
	if err := rec.Validate(); err != nil {
		return core.Item{}, invalid("update item", err)
	}
	err := c.commit(ctx, "update item", "Item updated!",
		func(uid string) (remote.Revision, error) {
			return c.remote.Update(ctx, uid, remote.Items, id, remote.Fields{Label: name, Value: cost})
		},
		func(rev remote.Revision) {
			rec.CreatedAt = core.FormatTimestamp(c.now())
			c.state.Items.ApplyWrite(rev, state.Replace(id, rec))
		})
	return rec, err
}

func (c *Controller) DeleteItem(ctx context.Context, id string) error {
	return c.commit(ctx, "delete item", "Item deleted!",
		func(uid string) (remote.Revision, error) {
			return c.remote.Delete(ctx, uid, remote.Items, id)
		},
		func(rev remote.Revision) {
			c.state.Items.ApplyWrite(rev, state.Remove[core.Item](id))
		})
}

func (c *Controller) AddOtherCost(ctx context.Context, description string, amount float64) (core.OtherCost, error) {
	rec := core.OtherCost{Description: description, Amount: amount}
	if err := rec.Validate(); err != nil {
		return core.OtherCost{}, invalid("add cost", err)
	}
	err := c.commit(ctx, "add cost", "Cost added!",
		func(uid string) (remote.Revision, error) {
			id, rev, err := c.remote.Create(ctx, uid, remote.OtherCosts, remote.Fields{Label: description, Value: amount})
			rec.ID = id
			return rev, err
		},
		func(rev remote.Revision) {
			rec.CreatedAt = core.FormatTimestamp(c.now())
			c.state.OtherCosts.ApplyWrite(rev, state.Upsert(rec))
		})
	return rec, err
}

func (c *Controller) UpdateOtherCost(ctx context.Context, id, description string, amount float64) (core.OtherCost, error) {
	rec := core.OtherCost{ID: id, Description: description, Amount: amount}
	if err := rec.Validate(); err != nil {
		return core.OtherCost{}, invalid("update cost", err)
	}
	err := c.commit(ctx, "update cost", "Cost updated!",
		func(uid string) (remote.Revision, error) {
			return c.remote.Update(ctx, uid, remote.OtherCosts, id, remote.Fields{Label: description, Value: amount})
		},
		func(rev remote.Revision) {
			rec.CreatedAt = core.FormatTimestamp(c.now())
			c.state.OtherCosts.ApplyWrite(rev, state.Replace(id, rec))
		})
	return rec, err
}

func (c *Controller) DeleteOtherCost(ctx context.Context, id string) error {
	return c.commit(ctx, "delete cost", "Cost deleted!",
		func(uid string) (remote.Revision, error) {
			return c.remote.Delete(ctx, uid, remote.OtherCosts, id)
		},
		func(rev remote.Revision) {
			c.state.OtherCosts.ApplyWrite(rev, state.Remove[core.OtherCost](id))
		})
}
