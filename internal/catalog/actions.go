package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/wesm/catalogview/internal/listctl"
)

// OrderRequest submits an order for one portfolio item.
type OrderRequest struct {
	PortfolioItemID string            `json:"portfolio_item_id" validate:"required,max=64"`
	Parameters      map[string]string `json:"service_parameters,omitempty" validate:"omitempty,dive,keys,required,endkeys"`
	// Name is the portfolio item name, used in notifications only.
	Name string `json:"-"`
}

// ErrInvalidRequest is returned when an OrderRequest fails validation.
var ErrInvalidRequest = errors.New("invalid order request")

var validate = validator.New()

// Validate checks the request before it is sent.
func (r OrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Outcome is how a user action ended.
type Outcome int

const (
	// OutcomeDone: the action completed.
	OutcomeDone Outcome = iota
	// OutcomeCancelled: the user declined the confirmation.
	OutcomeCancelled
	// OutcomeFailed: the backend rejected the action.
	OutcomeFailed
)

// Dispatcher runs user actions against a backend and reports each
// outcome through a notifier: success, user cancel (warning) or
// failure (danger). A cancelled action is a normal outcome, not an
// error.
type Dispatcher struct {
	actions  Actions
	notifier listctl.Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(actions Actions, notifier listctl.Notifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = listctl.NotifierFunc(func(listctl.Notification) {})
	}
	return &Dispatcher{actions: actions, notifier: notifier, logger: logger}
}

// SubmitOrder validates and submits req if confirmed.
func (d *Dispatcher) SubmitOrder(ctx context.Context, req OrderRequest, confirmed bool) (Order, Outcome, error) {
	if !confirmed {
		d.cancelled("Ordering was cancelled by the user.")
		return Order{}, OutcomeCancelled, nil
	}
	if err := req.Validate(); err != nil {
		d.failed("Failed to submit order", err)
		return Order{}, OutcomeFailed, err
	}
	order, err := d.actions.SubmitOrder(ctx, req)
	if err != nil {
		d.failed("Failed to submit order", err)
		return Order{}, OutcomeFailed, err
	}
	name := req.Name
	if name == "" {
		name = req.PortfolioItemID
	}
	d.notifier.Notify(listctl.Notification{
		Variant:     listctl.VariantSuccess,
		Title:       "Order submitted",
		Description: fmt.Sprintf("Order %s for %s was submitted.", order.ID, name),
	})
	return order, OutcomeDone, nil
}

// CancelOrder cancels order id if confirmed.
func (d *Dispatcher) CancelOrder(ctx context.Context, id string, confirmed bool) (Order, Outcome, error) {
	if !confirmed {
		d.cancelled("Canceling order was cancelled by the user.")
		return Order{}, OutcomeCancelled, nil
	}
	order, err := d.actions.CancelOrder(ctx, id)
	if err != nil {
		d.failed("Failed to cancel order", err)
		return Order{}, OutcomeFailed, err
	}
	d.notifier.Notify(listctl.Notification{
		Variant:     listctl.VariantSuccess,
		Title:       "Order canceled",
		Description: fmt.Sprintf("Order %s was canceled.", id),
	})
	return order, OutcomeDone, nil
}

// RemovePortfolio removes p if confirmed.
func (d *Dispatcher) RemovePortfolio(ctx context.Context, p Portfolio, confirmed bool) (Outcome, error) {
	if !confirmed {
		d.cancelled("Removing portfolio was cancelled by the user.")
		return OutcomeCancelled, nil
	}
	if err := d.actions.RemovePortfolio(ctx, p.ID); err != nil {
		d.failed("Failed to remove portfolio", err)
		return OutcomeFailed, err
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	d.notifier.Notify(listctl.Notification{
		Variant:     listctl.VariantSuccess,
		Title:       "Portfolio removed",
		Description: fmt.Sprintf("Portfolio %s was removed.", name),
	})
	return OutcomeDone, nil
}

func (d *Dispatcher) cancelled(title string) {
	d.notifier.Notify(listctl.Notification{Variant: listctl.VariantWarning, Title: title})
}

func (d *Dispatcher) failed(title string, err error) {
	d.logger.Warn(title, "error", err)
	d.notifier.Notify(listctl.Notification{
		Variant:     listctl.VariantDanger,
		Title:       title,
		Description: err.Error(),
	})
}
