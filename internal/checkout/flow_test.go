package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cart-widget/internal/cart"
	"github.com/fjod/cart-widget/internal/domain"
	"github.com/fjod/cart-widget/internal/notify"
	"github.com/fjod/cart-widget/internal/store"
)

type notificationRecorder struct {
	m             sync.Mutex
	notifications []notify.Notification
}

func (r *notificationRecorder) Notify(n notify.Notification) {
	r.m.Lock()
	defer r.m.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *notificationRecorder) last() (notify.Notification, bool) {
	r.m.Lock()
	defer r.m.Unlock()
	if len(r.notifications) == 0 {
		return notify.Notification{}, false
	}
	return r.notifications[len(r.notifications)-1], true
}

func validCustomer() domain.CustomerData {
	return domain.CustomerData{
		Email:   "maria@example.com",
		Name:    "Maria",
		Surname: "Silva",
		Phone:   domain.Phone{Number: "11999990000"},
	}
}

func filledCart(t *testing.T) (*cart.Cart, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	c := cart.New(st)
	require.True(t, c.AddItem(context.Background(), domain.LineItem{
		ID: "p1", Name: "Caderno", Price: 10.5, Image: "caderno.jpg",
	}, 2))
	require.True(t, c.AddItem(context.Background(), domain.LineItem{
		ID: "p2", Name: "Lápis", Price: 3, Image: "lapis.jpg",
	}, 1))
	return c, st
}

func TestBegin_EmptyCart(t *testing.T) {
	recorder := &notificationRecorder{}
	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer backend.Close()

	c := cart.New(store.NewMemoryStore())
	sut := NewFlow(c, backend.URL, backend.Client(), recorder)

	err := sut.Begin()
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateIdle, sut.State())
	assert.Equal(t, 0, requests)

	n, ok := recorder.last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelWarning, n.Level)
}

func TestBegin_TransitionsToCollecting(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})

	require.NoError(t, sut.Begin())
	assert.Equal(t, StateCollecting, sut.State())
}

func TestSubmit_InvalidEmail_NoRequestIssued(t *testing.T) {
	recorder := &notificationRecorder{}
	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer backend.Close()

	c, _ := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), recorder)
	require.NoError(t, sut.Begin())

	customer := validCustomer()
	customer.Email = "not-an-email"

	_, err := sut.Submit(context.Background(), customer)
	assert.ErrorIs(t, err, ErrInvalidCustomerData)
	assert.Equal(t, 0, requests)

	// Flow stays open for correction.
	assert.Equal(t, StateCollecting, sut.State())

	n, ok := recorder.last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelDanger, n.Level)
}

func TestSubmit_Success_ClearsCartAndReturnsInitPoint(t *testing.T) {
	var received domain.PreferenceRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(domain.PreferenceResponse{
			Success:   true,
			InitPoint: "https://pay.example.com/init/abc",
		})
	}))
	defer backend.Close()

	c, st := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), &notificationRecorder{})
	require.NoError(t, sut.Begin())

	initPoint, err := sut.Submit(context.Background(), validCustomer())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/init/abc", initPoint)
	assert.Equal(t, StateSucceeded, sut.State())

	// Payload carries the wire shape the backend expects.
	assert.Equal(t, domain.ActionCreatePreference, received.Action)
	require.Len(t, received.Data.Items, 2)
	assert.Equal(t, "p1", received.Data.Items[0].ID)
	assert.Equal(t, "Caderno", received.Data.Items[0].Title)
	assert.Equal(t, 2, received.Data.Items[0].Quantity)
	assert.Equal(t, 10.5, received.Data.Items[0].UnitPrice)
	assert.Equal(t, "maria@example.com", received.Data.Payer.Email)

	// Cart cleared in memory and in the store.
	assert.Equal(t, 0, c.ItemCount())
	persisted, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestSubmit_BackendReportsFailure_CartPreserved(t *testing.T) {
	recorder := &notificationRecorder{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.PreferenceResponse{
			Success: false,
			Error:   "preference rejected",
		})
	}))
	defer backend.Close()

	c, _ := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), recorder)
	require.NoError(t, sut.Begin())

	_, err := sut.Submit(context.Background(), validCustomer())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, StateFailed, sut.State())
	assert.Equal(t, 3, c.ItemCount())

	n, ok := recorder.last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelDanger, n.Level)
	assert.Contains(t, n.Message, "preference rejected")
}

func TestSubmit_MalformedResponse_CartPreserved(t *testing.T) {
	recorder := &notificationRecorder{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer backend.Close()

	c, _ := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), recorder)
	require.NoError(t, sut.Begin())

	_, err := sut.Submit(context.Background(), validCustomer())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, StateFailed, sut.State())
	assert.Equal(t, 3, c.ItemCount())

	n, ok := recorder.last()
	require.True(t, ok)
	assert.Equal(t, "Erro ao processar pedido. Tente novamente.", n.Message)
}

func TestSubmit_SuccessWithoutInitPoint_IsFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.PreferenceResponse{Success: true})
	}))
	defer backend.Close()

	c, _ := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), &notificationRecorder{})
	require.NoError(t, sut.Begin())

	_, err := sut.Submit(context.Background(), validCustomer())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 3, c.ItemCount())
}

func TestSubmit_NetworkError_CartPreserved(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://127.0.0.1:1/unreachable", &http.Client{}, &notificationRecorder{})
	require.NoError(t, sut.Begin())

	_, err := sut.Submit(context.Background(), validCustomer())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, StateFailed, sut.State())
	assert.Equal(t, 3, c.ItemCount())
}

func TestCancel_AbortsCollection(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})
	require.NoError(t, sut.Begin())

	require.NoError(t, sut.Cancel())
	assert.Equal(t, StateIdle, sut.State())
	assert.Equal(t, 3, c.ItemCount())
}

func TestCancel_OnlyFromCollecting(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})

	assert.ErrorIs(t, sut.Cancel(), ErrInvalidState)
}

func TestSubmit_RequiresCollectingState(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})

	_, err := sut.Submit(context.Background(), validCustomer())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAwait_ResolvedBySubmit(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.PreferenceResponse{
			Success:   true,
			InitPoint: "https://pay.example.com/init/abc",
		})
	}))
	defer backend.Close()

	c, _ := filledCart(t)
	sut := NewFlow(c, backend.URL, backend.Client(), &notificationRecorder{})
	require.NoError(t, sut.Begin())

	type outcome struct {
		data domain.CustomerData
		err  error
	}
	got := make(chan outcome, 1)
	go func() {
		data, err := sut.Await(context.Background())
		got <- outcome{data: data, err: err}
	}()

	_, err := sut.Submit(context.Background(), validCustomer())
	require.NoError(t, err)

	o := <-got
	require.NoError(t, o.err)
	assert.Equal(t, validCustomer(), o.data)
}

func TestAwait_AbortedByCancel(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})
	require.NoError(t, sut.Begin())
	require.NoError(t, sut.Cancel())

	_, err := sut.Await(context.Background())
	assert.ErrorIs(t, err, ErrCheckoutAborted)

	// Single resolution: later calls return the settled outcome.
	_, err = sut.Await(context.Background())
	assert.ErrorIs(t, err, ErrCheckoutAborted)
}

func TestAwait_NotResolvedByInvalidData(t *testing.T) {
	c, _ := filledCart(t)
	sut := NewFlow(c, "http://backend.invalid", nil, &notificationRecorder{})
	require.NoError(t, sut.Begin())

	customer := validCustomer()
	customer.Email = "not-an-email"
	_, err := sut.Submit(context.Background(), customer)
	require.ErrorIs(t, err, ErrInvalidCustomerData)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Still pending: Await falls through to the caller's context.
	_, err = sut.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateCustomerData(t *testing.T) {
	assert.NoError(t, ValidateCustomerData(validCustomer()))

	missingAt := validCustomer()
	missingAt.Email = "maria.example.com"
	assert.Error(t, ValidateCustomerData(missingAt))

	shortName := validCustomer()
	shortName.Name = "M"
	assert.Error(t, ValidateCustomerData(shortName))

	shortPhone := validCustomer()
	shortPhone.Phone.Number = "119999"
	assert.Error(t, ValidateCustomerData(shortPhone))

	noSurname := validCustomer()
	noSurname.Surname = ""
	assert.NoError(t, ValidateCustomerData(noSurname))
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, StateIdle.IsTerminal())
	assert.False(t, StateCollecting.IsTerminal())
	assert.False(t, StateSubmitting.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}
