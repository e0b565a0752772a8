package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fjod/cart-widget/internal/cart"
	"github.com/fjod/cart-widget/internal/domain"
	"github.com/fjod/cart-widget/internal/notify"
)

// State of a checkout flow. A flow is single-shot: once it reaches a
// terminal state, retrying means starting a new flow, which issues a
// fresh, independent request.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting_customer_data"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}

var (
	// ErrEmptyCart guards entry: an empty cart never starts a checkout.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidCustomerData is returned on local validation failure; the
	// flow stays in the collecting state for correction.
	ErrInvalidCustomerData = errors.New("invalid customer data")
	// ErrInvalidState is returned when Begin, Submit or Cancel arrives in
	// a state that does not accept it.
	ErrInvalidState = errors.New("invalid checkout state")
	// ErrCheckoutAborted resolves Await when Cancel aborts the
	// collection step.
	ErrCheckoutAborted = errors.New("checkout aborted")
	// ErrBackend covers any response shape other than a successful
	// preference, and any transport or parsing error.
	ErrBackend = errors.New("order creation failed")
)

// Flow drives one checkout attempt:
// idle -> collecting_customer_data -> submitting -> succeeded | failed.
type Flow struct {
	id         string
	cart       *cart.Cart
	client     *http.Client
	backendURL string
	notifier   notify.Notifier

	mu    sync.Mutex
	state State

	resolveOnce sync.Once
	resolved    chan struct{}
	customer    domain.CustomerData
	resolveErr  error
}

func NewFlow(c *cart.Cart, backendURL string, client *http.Client, notifier notify.Notifier) *Flow {
	if client == nil {
		client = http.DefaultClient
	}
	return &Flow{
		id:         uuid.NewString(),
		cart:       c,
		client:     client,
		backendURL: backendURL,
		notifier:   notifier,
		state:      StateIdle,
		resolved:   make(chan struct{}),
	}
}

func (f *Flow) ID() string {
	return f.id
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Begin transitions idle -> collecting. An empty cart emits a warning
// notification and stays idle.
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateIdle {
		return fmt.Errorf("%w: state is %s", ErrInvalidState, f.state)
	}
	if f.cart.Len() == 0 {
		f.notifier.Notify(notify.New(notify.LevelWarning, "Seu carrinho está vazio!"))
		return ErrEmptyCart
	}

	f.state = StateCollecting
	return nil
}

// Cancel aborts a collecting flow. The cart is untouched; Await is
// resolved with ErrCheckoutAborted.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollecting {
		return fmt.Errorf("%w: state is %s", ErrInvalidState, f.state)
	}

	f.state = StateIdle
	f.resolve(domain.CustomerData{}, ErrCheckoutAborted)
	return nil
}

// Await blocks until the collection step settles: Submit resolves it
// with the validated customer data, Cancel aborts it with
// ErrCheckoutAborted. The resolution is single-shot; later calls return
// the settled outcome immediately.
func (f *Flow) Await(ctx context.Context) (domain.CustomerData, error) {
	select {
	case <-f.resolved:
		return f.customer, f.resolveErr
	case <-ctx.Done():
		return domain.CustomerData{}, ctx.Err()
	}
}

func (f *Flow) resolve(data domain.CustomerData, err error) {
	f.resolveOnce.Do(func() {
		f.customer = data
		f.resolveErr = err
		close(f.resolved)
	})
}

// Submit validates the customer data and, if valid, issues exactly one
// order-creation request. On success the cart is cleared and the payment
// URL is returned for navigation. On any failure the cart is preserved so
// the user may retry with a new flow.
func (f *Flow) Submit(ctx context.Context, data domain.CustomerData) (string, error) {
	f.mu.Lock()
	if f.state != StateCollecting {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: state is %s", ErrInvalidState, f.state)
	}

	if err := ValidateCustomerData(data); err != nil {
		// Stay collecting so the form can be corrected and resubmitted.
		f.mu.Unlock()
		f.notifier.Notify(notify.New(notify.LevelDanger, err.Error()))
		return "", fmt.Errorf("%w: %v", ErrInvalidCustomerData, err)
	}

	f.state = StateSubmitting
	f.mu.Unlock()
	f.resolve(data, nil)

	initPoint, err := f.createPreference(ctx, data)
	if err != nil {
		f.mu.Lock()
		f.state = StateFailed
		f.mu.Unlock()

		log.Printf("checkout %s failed: %v", f.id, err)
		f.notifier.Notify(notify.New(notify.LevelDanger, failureMessage(err)))
		return "", err
	}

	f.cart.Clear(ctx)

	f.mu.Lock()
	f.state = StateSucceeded
	f.mu.Unlock()
	return initPoint, nil
}

func (f *Flow) createPreference(ctx context.Context, payer domain.CustomerData) (string, error) {
	payload := domain.PreferenceRequest{
		Action: domain.ActionCreatePreference,
		Data:   domain.NewOrder(f.cart.Items(), payer),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal order failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.backendURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	var result domain.PreferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrBackend, err)
	}

	if !result.Success || result.InitPoint == "" {
		if result.Error != "" {
			return "", &BackendError{Message: result.Error}
		}
		return "", ErrBackend
	}

	return result.InitPoint, nil
}

// BackendError carries the error message the backend itself reported.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%v: %s", ErrBackend, e.Message)
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// failureMessage prefers the server-provided error text when the backend
// answered with one, and falls back to a generic retry message.
func failureMessage(err error) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return "Erro ao processar pedido: " + backendErr.Message
	}
	return "Erro ao processar pedido. Tente novamente."
}

// ValidateCustomerData applies the local checks: email must contain "@",
// name at least 2 characters, phone number at least 10 characters. Not
// locale-aware.
func ValidateCustomerData(data domain.CustomerData) error {
	if !strings.Contains(data.Email, "@") {
		return errors.New("E-mail inválido!")
	}
	if len(data.Name) < 2 {
		return errors.New("Nome deve ter pelo menos 2 caracteres!")
	}
	if len(data.Phone.Number) < 10 {
		return errors.New("Telefone inválido!")
	}
	return nil
}
