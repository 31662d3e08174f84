package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/notify"
	"costtracker/internal/state"
)

var errMissingCredentials = errors.New("email and password are required")

// requireUser answers 401 while nobody is signed in.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.session.State().User(); !ok {
			UnauthorizedError("You must be signed in.").Write(w)
			return
		}
		next(w, r)
	}
}

// fail writes err with the status its kind maps to. Toasts raised by the
// session travel in the HX-Trigger header.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, c *notify.Collector, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, nil)
	}
	NewResponse().
		Status(status).
		TriggerLastNotification(c).
		JSON(errorBody{Error: core.Message(err), Kind: string(core.KindOf(err))}).
		Write(w)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, call func(ctx context.Context, email, password string) (core.User, error)) {
	creds, err := parseCredentials(r)
	if err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		UnprocessableEntityError(errMissingCredentials.Error()).Write(w)
		return
	}

	ctx, collected := notify.WithCollector(r.Context())
	u, err := call(ctx, creds.Email, creds.Password)
	if err != nil {
		s.fail(w, r.WithContext(ctx), collected, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "User authenticated", slog.String(applog.FieldUserID, u.UID))
	NewResponse().
		TriggerLastNotification(collected).
		TriggerStateChanged(state.ChangeUser).
		JSON(map[string]any{"user": u}).
		Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.session.SignIn)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.session.SignUp)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, collected := notify.WithCollector(r.Context())
	if err := s.session.SignOut(ctx); err != nil {
		s.fail(w, r, collected, err)
		return
	}
	NewResponse().
		TriggerLastNotification(collected).
		TriggerStateChanged(state.ChangeUser).
		JSON(map[string]any{"user": nil}).
		Write(w)
}

type totals struct {
	Items      float64 `json:"items"`
	OtherCosts float64 `json:"other_costs"`
	Total      float64 `json:"total"`
}

type formattedTotals struct {
	Items      string `json:"items"`
	OtherCosts string `json:"other_costs"`
	Total      string `json:"total"`
	// Display carries the currency-formatted total, e.g. "$12.30".
	Display string `json:"display"`
}

type stateResponse struct {
	User       *core.User       `json:"user"`
	Items      []core.Item      `json:"items"`
	OtherCosts []core.OtherCost `json:"other_costs"`
	Totals     totals           `json:"totals"`
	Formatted  formattedTotals  `json:"formatted"`
	Chart      *core.Series     `json:"chart,omitempty"`
	Sort       core.SortMode    `json:"sort"`
	MinCost    float64          `json:"min_cost"`
}

// handleState renders the tracker view. Totals always cover every item,
// not just the filtered list.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	params, err := parseViewParams(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	view := s.session.State().View()
	sum := core.Summarize(view.Items, view.OtherCosts)

	resp := stateResponse{
		User:       view.User,
		Items:      core.ItemsView(view.Items, params.Sort, params.MinCost),
		OtherCosts: view.OtherCosts,
		Totals: totals{
			Items:      sum.ItemsTotal,
			OtherCosts: sum.OtherTotal,
			Total:      sum.Total,
		},
		Formatted: formattedTotals{
			Items:      core.FormatAmount(sum.ItemsTotal),
			OtherCosts: core.FormatAmount(sum.OtherTotal),
			Total:      core.FormatAmount(sum.Total),
			Display:    core.FormatMoney(sum.Total, s.opts.Currency),
		},
		Chart:   sum.Chart,
		Sort:    params.Sort,
		MinCost: params.MinCost,
	}
	if resp.OtherCosts == nil {
		resp.OtherCosts = []core.OtherCost{}
	}
	NewResponse().JSON(resp).Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	recent := []notify.Notification{}
	if s.opts.Notifications != nil {
		recent = append(recent, s.opts.Notifications.Recent()...)
	}
	NewResponse().JSON(map[string]any{"notifications": recent}).Write(w)
}

// mutate runs a session write with a notification collector and answers
// with the record, or with the failure.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, collection string, status int, call func(r *http.Request) (any, error)) {
	ctx, collected := notify.WithCollector(r.Context())
	r = r.WithContext(ctx)
	rec, err := call(r)
	if err != nil {
		s.fail(w, r, collected, err)
		return
	}
	b := NewResponse().
		Status(status).
		TriggerLastNotification(collected).
		TriggerStateChanged(collection)
	if rec == nil {
		b.Status(http.StatusNoContent).Write(w)
		return
	}
	b.JSON(rec).Write(w)
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeItems, http.StatusCreated, func(r *http.Request) (any, error) {
		in, err := parseRecord(r, "name", "cost", core.ErrEmptyName)
		if err != nil {
			return nil, asValidation("add item", err)
		}
		return s.session.AddItem(r.Context(), in.Label, in.Amount)
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeItems, http.StatusOK, func(r *http.Request) (any, error) {
		in, err := parseRecord(r, "name", "cost", core.ErrEmptyName)
		if err != nil {
			return nil, asValidation("update item", err)
		}
		return s.session.UpdateItem(r.Context(), pathID(r), in.Label, in.Amount)
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeItems, http.StatusNoContent, func(r *http.Request) (any, error) {
		return nil, s.session.DeleteItem(r.Context(), pathID(r))
	})
}

func (s *Server) handleAddOtherCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeOtherCosts, http.StatusCreated, func(r *http.Request) (any, error) {
		in, err := parseRecord(r, "description", "amount", core.ErrEmptyDescription)
		if err != nil {
			return nil, asValidation("add cost", err)
		}
		return s.session.AddOtherCost(r.Context(), in.Label, in.Amount)
	})
}

func (s *Server) handleUpdateOtherCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeOtherCosts, http.StatusOK, func(r *http.Request) (any, error) {
		in, err := parseRecord(r, "description", "amount", core.ErrEmptyDescription)
		if err != nil {
			return nil, asValidation("update cost", err)
		}
		return s.session.UpdateOtherCost(r.Context(), pathID(r), in.Label, in.Amount)
	})
}

func (s *Server) handleDeleteOtherCost(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, state.ChangeOtherCosts, http.StatusNoContent, func(r *http.Request) (any, error) {
		return nil, s.session.DeleteOtherCost(r.Context(), pathID(r))
	})
}

// asValidation tags body parse failures so they answer 422.
func asValidation(op string, err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.NewError(core.KindValidation, op, err)
}
