// Package workflow wires UI intents, state mutations and view updates into
// the storefront checkout flow:
//
//	browsing -> basket -> delivery -> contacts -> submitting -> success
//
// A failed submission returns to contacts. Every transition is triggered by
// an event on the bus; the sequencer only reads state in response to events.
package workflow

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/larek-storefront/internal/domain/lot"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/domain/state"
	"github.com/xenking/larek-storefront/internal/view"
	"github.com/xenking/larek-storefront/pkg/eventbus"
)

const instrumentationName = "github.com/xenking/larek-storefront/internal/workflow"

// Step is the position of the session in the checkout flow.
type Step string

const (
	StepBrowsing   Step = "browsing"
	StepPreview    Step = "preview"
	StepBasket     Step = "basket"
	StepDelivery   Step = "delivery"
	StepContacts   Step = "contacts"
	StepSubmitting Step = "submitting"
	StepSuccess    Step = "success"
)

// InCheckout reports whether an order draft is live at this step.
func (s Step) InCheckout() bool {
	return s == StepDelivery || s == StepContacts || s == StepSubmitting
}

// Presenter renders view models. Implementations receive copies and must not
// reach back into the state.
type Presenter interface {
	Gallery(cards []view.Card)
	Counter(n int)
	Basket(b view.Basket)
	Open(m view.Modal)
	FormState(f view.Form, s view.FormState)
	Close()
	Lock(locked bool)
	Step(step string)
}

// Sequencer reacts to bus events and drives the checkout flow.
type Sequencer struct {
	bus       *eventbus.Bus
	state     *state.State
	view      Presenter
	submitter order.Submitter
	validator order.Validator

	lg            *zap.Logger
	submitTimeout time.Duration
	tracer        trace.Tracer
	placed        metric.Int64Counter
	failed        metric.Int64Counter

	ctx           context.Context
	subs          []*eventbus.Subscription
	step          Step
	deliveryValid bool
	contactsValid bool
	lastErr       error
}

type options struct {
	lg            *zap.Logger
	validator     order.Validator
	submitTimeout time.Duration
	meters        metric.MeterProvider
	tracers       trace.TracerProvider
}

// Option configures a Sequencer.
type Option func(*options)

// WithLogger sets the logger. Submission failures are logged here.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithValidator runs v after every field input. Without a validator the
// forms only change validity on externally emitted order:validate events.
func WithValidator(v order.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithSubmitTimeout bounds a single order submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(o *options) { o.submitTimeout = d }
}

// WithMeterProvider sets the meter provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meters = mp }
}

// WithTracerProvider sets the tracer provider for submission spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracers = tp }
}

// New creates a Sequencer. Call Start to subscribe it to the bus.
func New(
	bus *eventbus.Bus,
	st *state.State,
	presenter Presenter,
	submitter order.Submitter,
	opts ...Option,
) (*Sequencer, error) {
	o := options{
		lg:            zap.NewNop(),
		submitTimeout: 30 * time.Second,
		meters:        metricnoop.NewMeterProvider(),
		tracers:       tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meters.Meter(instrumentationName)
	placed, err := meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders accepted by the order service"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create placed counter")
	}
	failed, err := meter.Int64Counter("storefront.orders.failed",
		metric.WithDescription("Order submissions rejected or failed in transport"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create failed counter")
	}

	return &Sequencer{
		bus:           bus,
		state:         st,
		view:          presenter,
		submitter:     submitter,
		validator:     o.validator,
		lg:            o.lg,
		submitTimeout: o.submitTimeout,
		tracer:        o.tracers.Tracer(instrumentationName),
		placed:        placed,
		failed:        failed,
		ctx:           context.Background(),
		step:          StepBrowsing,
	}, nil
}

// Start subscribes the sequencer to the bus. ctx bounds order submissions
// started by later events.
func (s *Sequencer) Start(ctx context.Context) {
	s.ctx = ctx
	s.subs = append(s.subs,
		eventbus.On(s.bus, state.EventCatalogLoaded, s.onCatalogLoaded),
		eventbus.On(s.bus, lot.EventBasketChanged, s.onBasketChanged),
		eventbus.On(s.bus, state.EventPreviewChanged, s.onPreviewChanged),
		eventbus.On(s.bus, order.EventValidated, s.onValidated),
		s.bus.Subscribe(EventBasketOpen, func(any) { s.onBasketOpen() }),
		eventbus.On(s.bus, EventLotOpen, s.onLotOpen),
		eventbus.On(s.bus, EventLotToggle, s.onLotToggle),
		eventbus.On(s.bus, EventBasketRemove, s.onBasketRemove),
		s.bus.Subscribe(EventOrderOpen, func(any) { s.onOrderOpen() }),
		eventbus.On(s.bus, EventPaymentSelect, s.onPaymentSelect),
		eventbus.On(s.bus, EventAddressInput, s.fieldInput((*order.Order).SetAddress)),
		eventbus.On(s.bus, EventEmailInput, s.fieldInput((*order.Order).SetEmail)),
		eventbus.On(s.bus, EventPhoneInput, s.fieldInput((*order.Order).SetPhone)),
		s.bus.Subscribe(EventDeliverySubmit, func(any) { s.onDeliverySubmit() }),
		s.bus.Subscribe(EventContactsOpen, func(any) { s.onContactsOpen() }),
		s.bus.Subscribe(EventContactsSubmit, func(any) { s.onContactsSubmit() }),
		s.bus.Subscribe(EventModalOpen, func(any) { s.view.Lock(true) }),
		s.bus.Subscribe(EventModalClose, func(any) { s.onModalClose() }),
		s.bus.Subscribe(EventSuccessClose, func(any) { s.bus.Emit(EventModalClose, nil) }),
	)
}

// Stop unsubscribes the sequencer.
func (s *Sequencer) Stop() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// Step returns the current step.
func (s *Sequencer) Step() Step { return s.step }

// DeliveryValid reports the delivery form validity from the last broadcast.
func (s *Sequencer) DeliveryValid() bool { return s.deliveryValid }

// ContactsValid reports the contacts form validity from the last broadcast.
func (s *Sequencer) ContactsValid() bool { return s.contactsValid }

// LastError returns the error of the last failed submission, if the session
// is still on the step that failed.
func (s *Sequencer) LastError() error { return s.lastErr }

func (s *Sequencer) setStep(step Step) {
	s.step = step
	s.view.Step(string(step))
}

func (s *Sequencer) openModal(m view.Modal) {
	s.view.Open(m)
	s.bus.Emit(EventModalOpen, m.Kind)
}

func (s *Sequencer) basketView() view.Basket {
	return view.BasketFromLots(s.state.Basket(), s.state.TotalAmount())
}

func (s *Sequencer) onCatalogLoaded(c state.CatalogChange) {
	cards := make([]view.Card, len(c.Catalog))
	for i, l := range c.Catalog {
		cards[i] = view.CardFromLot(l)
	}
	s.view.Gallery(cards)
	s.view.Counter(s.state.BasketLength())
	s.view.Basket(s.basketView())

	// The new lots start outside the basket, so an order built on the old
	// basket is dropped along with any open modal.
	if s.state.Order() != nil {
		s.lg.Debug("Catalog replaced during checkout, dropping order")
		s.state.DiscardOrder()
	}
	switch s.step {
	case StepPreview, StepBasket, StepDelivery, StepContacts:
		s.bus.Emit(EventModalClose, nil)
	}
}

func (s *Sequencer) onBasketChanged(lot.BasketChange) {
	s.view.Counter(s.state.BasketLength())
	s.view.Basket(s.basketView())

	if s.state.BasketLength() == 0 && s.state.Order() != nil && s.step != StepSubmitting {
		s.lg.Debug("Basket emptied during checkout, dropping order")
		s.state.DiscardOrder()
		if s.step.InCheckout() {
			s.bus.Emit(EventModalClose, nil)
		}
	}
}

func (s *Sequencer) onPreviewChanged(c state.PreviewChange) {
	if c.Lot == nil {
		return
	}
	if s.step.InCheckout() {
		s.state.DiscardOrder()
	}
	card := view.PreviewFromLot(c.Lot)
	s.setStep(StepPreview)
	s.openModal(view.Modal{Kind: view.ModalPreview, Preview: &card})
}

func (s *Sequencer) onBasketOpen() {
	if !s.state.Loaded() {
		s.lg.Debug("Basket requested before catalog load")
		return
	}
	if s.step.InCheckout() {
		s.state.DiscardOrder()
	}
	b := s.basketView()
	s.setStep(StepBasket)
	s.openModal(view.Modal{Kind: view.ModalBasket, Basket: &b})
}

func (s *Sequencer) lookup(ref LotRef) (*lot.Lot, bool) {
	l, ok := s.state.LotByID(ref.ID)
	if !ok {
		s.lg.Warn("Unknown lot", zap.String("lot_id", ref.ID))
	}
	return l, ok
}

func (s *Sequencer) onLotOpen(ref LotRef) {
	if l, ok := s.lookup(ref); ok {
		s.state.SetPreview(l)
	}
}

func (s *Sequencer) onLotToggle(ref LotRef) {
	l, ok := s.lookup(ref)
	if !ok {
		return
	}
	if s.state.IsInBasket(l) {
		l.RemoveFromBasket()
	} else {
		l.PlaceInBasket()
	}
	// Re-render the preview with the new button label.
	s.state.SetPreview(l)
}

func (s *Sequencer) onBasketRemove(ref LotRef) {
	l, ok := s.lookup(ref)
	if !ok {
		return
	}
	l.RemoveFromBasket()
	s.bus.Emit(EventBasketOpen, nil)
}

func (s *Sequencer) onOrderOpen() {
	if s.state.BasketLength() == 0 {
		s.lg.Debug("Checkout requested with empty basket")
		return
	}
	o := s.state.InitOrder()
	d := o.Details()

	s.deliveryValid = false
	s.lastErr = nil
	s.setStep(StepDelivery)
	s.openModal(view.Modal{Kind: view.ModalDelivery, Delivery: &view.DeliveryForm{
		Payment: string(d.Payment),
		Address: d.Address,
	}})
}

func (s *Sequencer) onPaymentSelect(p PaymentSelected) {
	o := s.state.Order()
	if o == nil {
		return
	}
	o.SetPayment(p.Target)
	s.validate(o)
}

func (s *Sequencer) fieldInput(set func(*order.Order, string)) func(FieldInput) {
	return func(in FieldInput) {
		o := s.state.Order()
		if o == nil {
			return
		}
		set(o, in.Value)
		s.validate(o)
	}
}

func (s *Sequencer) validate(o *order.Order) {
	if s.validator == nil {
		return
	}
	o.Validate(s.validator)
}

func (s *Sequencer) onValidated(errs order.FormErrors) {
	s.deliveryValid = errs.DeliveryValid()
	s.contactsValid = errs.ContactsValid()

	s.view.FormState(view.FormDelivery, view.FormState{
		Valid:  s.deliveryValid,
		Errors: errs.Messages(order.FieldPayment, order.FieldAddress),
	})
	s.view.FormState(view.FormContacts, view.FormState{
		Valid:  s.contactsValid,
		Errors: errs.Messages(order.FieldEmail, order.FieldPhone),
	})
}

// onDeliverySubmit trusts the last validation broadcast; it does not
// validate again.
func (s *Sequencer) onDeliverySubmit() {
	if s.step != StepDelivery || !s.deliveryValid {
		s.lg.Debug("Delivery step not finished",
			zap.String("step", string(s.step)),
			zap.Bool("valid", s.deliveryValid),
		)
		return
	}
	s.bus.Emit(EventContactsOpen, nil)
}

func (s *Sequencer) onContactsOpen() {
	o := s.state.Order()
	if o == nil {
		return
	}
	d := o.Details()

	s.contactsValid = false
	s.setStep(StepContacts)
	s.openModal(view.Modal{Kind: view.ModalContacts, Contacts: &view.ContactsForm{
		Email: d.Email,
		Phone: d.Phone,
	}})
}

func (s *Sequencer) onContactsSubmit() {
	if s.step != StepContacts || !s.contactsValid {
		s.lg.Debug("Contacts step not finished",
			zap.String("step", string(s.step)),
			zap.Bool("valid", s.contactsValid),
		)
		return
	}
	s.submit()
}

func (s *Sequencer) submit() {
	o := s.state.Order()
	if o == nil {
		return
	}
	req := order.Request{
		Details: o.Details(),
		Total:   s.state.TotalAmount(),
		Items:   s.state.BasketIDs(),
	}
	s.setStep(StepSubmitting)

	ctx, cancel := context.WithTimeout(s.ctx, s.submitTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.Int("order.items", len(req.Items)),
		attribute.String("order.payment", string(req.Payment)),
	))
	defer span.End()

	receipt, err := s.submitter.PlaceOrder(ctx, req)
	if err == nil && receipt == nil {
		err = errors.New("empty receipt")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order")
		s.failed.Add(ctx, 1)
		s.lg.Error("Order submission failed",
			zap.Error(err),
			zap.Strings("items", req.Items),
			zap.String("total", req.Total.String()),
		)
		s.lastErr = err
		s.setStep(StepContacts)
		s.view.FormState(view.FormContacts, view.FormState{
			Valid:  s.contactsValid,
			Errors: []string{err.Error()},
		})
		s.bus.Emit(EventOrderFailed, Failure{Request: req, Err: err})
		return
	}

	s.placed.Add(ctx, 1)
	s.lg.Info("Order placed",
		zap.String("order_id", receipt.ID),
		zap.String("total", receipt.Total.String()),
	)
	s.state.ClearBasket()
	s.state.DiscardOrder()
	s.lastErr = nil
	s.setStep(StepSuccess)

	success := view.NewSuccess(receipt.Total)
	s.openModal(view.Modal{Kind: view.ModalSuccess, Success: &success})
	s.bus.Emit(EventOrderPlaced, Placement{Request: req, Receipt: *receipt})
}

func (s *Sequencer) onModalClose() {
	s.view.Close()
	s.view.Lock(false)

	switch s.step {
	case StepPreview:
		s.state.SetPreview(nil)
	case StepDelivery, StepContacts:
		s.state.DiscardOrder()
	}
	s.setStep(StepBrowsing)
}
