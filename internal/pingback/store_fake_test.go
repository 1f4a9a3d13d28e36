package pingback

import (
	"context"
	"errors"
	"sync"

	"pwgateway/internal/models"
)

var errInjected = errors.New("injected store failure")

// fakeStore is an in-memory Store. Every write bumps mutations. failOn makes
// the named method fail once. With rollback set, WithinTransaction restores
// the previous state when fn fails.
type fakeStore struct {
	mu        sync.Mutex
	orders    map[uint]*models.Order
	subs      map[uint]*models.Subscription
	notes     []models.Note
	nextID    uint
	mutations int
	failOn    map[string]bool
	rollback  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[uint]*models.Order),
		subs:     make(map[uint]*models.Subscription),
		nextID:   1000,
		failOn:   make(map[string]bool),
		rollback: true,
	}
}

func (s *fakeStore) addOrder(o models.Order) *models.Order {
	s.orders[o.ID] = &o
	return &o
}

func (s *fakeStore) addSubscription(sub models.Subscription) *models.Subscription {
	s.subs[sub.ID] = &sub
	return &sub
}

func (s *fakeStore) order(id uint) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *fakeStore) subscription(id uint) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.subs[id]
}

func (s *fakeStore) notesFor(entityType string, id uint) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.notes {
		if n.EntityType == entityType && n.EntityID == id {
			out = append(out, n.Content)
		}
	}
	return out
}

func (s *fakeStore) renewalOrders(subID uint) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.CreatedVia == models.CreatedViaRenewal && o.ParentSubscriptionID != nil && *o.ParentSubscriptionID == subID {
			out = append(out, *o)
		}
	}
	return out
}

// fail must be called with mu held.
func (s *fakeStore) fail(method string) error {
	if s.failOn[method] {
		delete(s.failOn, method)
		return errInjected
	}
	return nil
}

func (s *fakeStore) GetOrder(_ context.Context, id uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) GetSubscriptionsForOrder(_ context.Context, orderID uint) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for id := uint(0); id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok && sub.ParentOrderID == orderID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *fakeStore) FindRenewalOrder(_ context.Context, subscriptionID uint, token string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.CreatedVia == models.CreatedViaRenewal && o.ParentSubscriptionID != nil &&
			*o.ParentSubscriptionID == subscriptionID && o.LinkageToken == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) AddOrderNote(_ context.Context, orderID uint, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddOrderNote"); err != nil {
		return err
	}
	s.mutations++
	s.notes = append(s.notes, models.Note{EntityType: models.NoteEntityOrder, EntityID: orderID, Content: note})
	return nil
}

func (s *fakeStore) SetOrderStatus(_ context.Context, orderID uint, status models.OrderStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetOrderStatus"); err != nil {
		return err
	}
	s.mutations++
	s.orders[orderID].Status = status
	if note != "" {
		s.notes = append(s.notes, models.Note{EntityType: models.NoteEntityOrder, EntityID: orderID, Content: note})
	}
	return nil
}

func (s *fakeStore) MarkPaymentComplete(_ context.Context, orderID uint, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkPaymentComplete"); err != nil {
		return err
	}
	o := s.orders[orderID]
	if !o.Status.NeedsPayment() {
		return nil
	}
	s.mutations++
	o.Status = o.PaidStatus()
	o.TransactionID = referenceID
	return nil
}

func (s *fakeStore) CancelOrder(ctx context.Context, orderID uint, note string) error {
	return s.SetOrderStatus(ctx, orderID, models.OrderCancelled, note)
}

func (s *fakeStore) SetOrderPaymentMethod(_ context.Context, orderID uint, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetOrderPaymentMethod"); err != nil {
		return err
	}
	s.mutations++
	s.orders[orderID].PaymentMethod = method
	return nil
}

func (s *fakeStore) SetOrderLinkageToken(_ context.Context, orderID uint, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetOrderLinkageToken"); err != nil {
		return err
	}
	s.mutations++
	s.orders[orderID].LinkageToken = token
	return nil
}

func (s *fakeStore) SetSubscriptionStatus(_ context.Context, subscriptionID uint, status models.SubscriptionStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetSubscriptionStatus"); err != nil {
		return err
	}
	s.mutations++
	s.subs[subscriptionID].Status = status
	if note != "" {
		s.notes = append(s.notes, models.Note{EntityType: models.NoteEntitySubscription, EntityID: subscriptionID, Content: note})
	}
	return nil
}

func (s *fakeStore) CreateRenewalOrder(_ context.Context, sub *models.Subscription) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateRenewalOrder"); err != nil {
		return nil, err
	}
	s.mutations++
	s.nextID++
	subID := sub.ID
	o := &models.Order{
		ID:                   s.nextID,
		Status:               models.OrderPending,
		Total:                sub.RecurringTotal,
		ParentSubscriptionID: &subID,
		CreatedVia:           models.CreatedViaRenewal,
	}
	s.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (s *fakeStore) WithinTransaction(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	snapshot := s.snapshot()
	s.mu.Unlock()

	err := fn(s)
	if err != nil && s.rollback {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
	}
	return err
}

type fakeState struct {
	orders    map[uint]models.Order
	subs      map[uint]models.Subscription
	notes     []models.Note
	nextID    uint
	mutations int
}

func (s *fakeStore) snapshot() fakeState {
	st := fakeState{
		orders:    make(map[uint]models.Order, len(s.orders)),
		subs:      make(map[uint]models.Subscription, len(s.subs)),
		notes:     append([]models.Note(nil), s.notes...),
		nextID:    s.nextID,
		mutations: s.mutations,
	}
	for id, o := range s.orders {
		st.orders[id] = *o
	}
	for id, sub := range s.subs {
		st.subs[id] = *sub
	}
	return st
}

func (s *fakeStore) restore(st fakeState) {
	s.orders = make(map[uint]*models.Order, len(st.orders))
	for id, o := range st.orders {
		o := o
		s.orders[id] = &o
	}
	s.subs = make(map[uint]*models.Subscription, len(st.subs))
	for id, sub := range st.subs {
		sub := sub
		s.subs[id] = &sub
	}
	s.notes = st.notes
	s.nextID = st.nextID
	s.mutations = st.mutations
}

// fakeCanceller records unschedule calls.
type fakeCanceller struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (c *fakeCanceller) Unschedule(_ context.Context, hook string, subscriptionID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hook != models.HookScheduledSubscriptionPayment {
		return 0, errors.New("unexpected hook " + hook)
	}
	c.calls = append(c.calls, subscriptionID)
	if c.err != nil {
		return 0, c.err
	}
	return 1, nil
}
