package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// memoryDB is the shared state behind the in-memory repositories. Every
// multi-row unit runs under mu, which gives it the same all-or-nothing
// behaviour as the PostgreSQL transactions.
type memoryDB struct {
	mu sync.Mutex

	hotels    map[string]*domain.Hotel
	roomTypes map[string]*domain.RoomType
	rooms     map[string]*domain.Room
	bookings  map[string]*domain.Booking
	coupons   map[string]*domain.Coupon
	usages    []*domain.CouponUsage
	rules     map[string]*domain.PricingRules
	sessions  map[string]*domain.PaymentSession
	payments  map[string]*domain.Payment // by session id
}

// MemoryStore groups in-memory repositories sharing one store
type MemoryStore struct {
	Inventory *MemoryInventoryRepository
	Bookings  *MemoryBookingRepository
	Coupons   *MemoryCouponRepository
	Pricing   *MemoryPricingRepository
	Payments  *MemoryPaymentRepository
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	db := &memoryDB{
		hotels:    make(map[string]*domain.Hotel),
		roomTypes: make(map[string]*domain.RoomType),
		rooms:     make(map[string]*domain.Room),
		bookings:  make(map[string]*domain.Booking),
		coupons:   make(map[string]*domain.Coupon),
		rules:     make(map[string]*domain.PricingRules),
		sessions:  make(map[string]*domain.PaymentSession),
		payments:  make(map[string]*domain.Payment),
	}
	return &MemoryStore{
		Inventory: &MemoryInventoryRepository{db: db},
		Bookings:  &MemoryBookingRepository{db: db},
		Coupons:   &MemoryCouponRepository{db: db},
		Pricing:   &MemoryPricingRepository{db: db},
		Payments:  &MemoryPaymentRepository{db: db},
	}
}

func (db *memoryDB) countActiveRooms(hotelID, roomTypeID string) int {
	n := 0
	for _, r := range db.rooms {
		if r.HotelID != hotelID || !r.IsActive {
			continue
		}
		if roomTypeID != "" && r.RoomTypeID != roomTypeID {
			continue
		}
		n++
	}
	return n
}

func (db *memoryDB) countOverlapping(hotelID, roomTypeID string, checkIn, checkOut time.Time) int {
	n := 0
	for _, b := range db.bookings {
		if b.HotelID != hotelID || !b.Status.HoldsInventory() {
			continue
		}
		if roomTypeID != "" && b.RoomTypeID != roomTypeID {
			continue
		}
		if b.Overlaps(checkIn, checkOut) {
			n++
		}
	}
	return n
}

func (db *memoryDB) hasUsage(couponID, userID string) bool {
	for _, u := range db.usages {
		if u.CouponID == couponID && u.UserID == userID {
			return true
		}
	}
	return false
}

// checkRedemption runs the checks that must hold when a usage is committed
func (db *memoryDB) checkRedemption(r *CouponRedemption) (*domain.Coupon, error) {
	c, ok := db.coupons[r.Usage.CouponID]
	if !ok || !c.IsLive() {
		return nil, domain.NewCouponError(r.Code, domain.CouponInvalidCode)
	}
	if c.LimitReached() {
		return nil, domain.NewCouponError(r.Code, domain.CouponLimitReached)
	}
	if r.SingleUsePerUser && db.hasUsage(c.ID, r.Usage.UserID) {
		return nil, domain.NewCouponError(r.Code, domain.CouponAlreadyUsed)
	}
	for _, u := range db.usages {
		if u.BookingID == r.Usage.BookingID {
			return nil, domain.NewValidationError("booking_id", "coupon already applied to this booking")
		}
	}
	return c, nil
}

func (db *memoryDB) applyRedemption(c *domain.Coupon, r *CouponRedemption) {
	u := *r.Usage
	db.usages = append(db.usages, &u)
	c.UsedCount++
	c.UpdatedAt = u.CreatedAt
}

// MemoryInventoryRepository implements InventoryRepository in memory
type MemoryInventoryRepository struct {
	db *memoryDB
}

func (r *MemoryInventoryRepository) CreateHotel(ctx context.Context, hotel *domain.Hotel) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if hotel.ID == "" {
		hotel.ID = uuid.New().String()
	}
	h := *hotel
	r.db.hotels[h.ID] = &h
	return nil
}

func (r *MemoryInventoryRepository) GetHotel(ctx context.Context, id string) (*domain.Hotel, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	h, ok := r.db.hotels[id]
	if !ok {
		return nil, domain.NewNotFoundError("hotel", id)
	}
	out := *h
	return &out, nil
}

func (r *MemoryInventoryRepository) CreateRoomType(ctx context.Context, roomType *domain.RoomType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.hotels[roomType.HotelID]; !ok {
		return domain.NewNotFoundError("hotel", roomType.HotelID)
	}
	if roomType.ID == "" {
		roomType.ID = uuid.New().String()
	}
	rt := *roomType
	r.db.roomTypes[rt.ID] = &rt
	return nil
}

func (r *MemoryInventoryRepository) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rt, ok := r.db.roomTypes[id]
	if !ok {
		return nil, domain.NewNotFoundError("room type", id)
	}
	out := *rt
	return &out, nil
}

func (r *MemoryInventoryRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rt, ok := r.db.roomTypes[room.RoomTypeID]
	if !ok || rt.HotelID != room.HotelID {
		return domain.NewNotFoundError("room type", room.RoomTypeID)
	}
	for _, existing := range r.db.rooms {
		if existing.HotelID == room.HotelID && existing.RoomNumber == room.RoomNumber {
			return domain.NewValidationError("room_number", "already exists in this hotel")
		}
	}
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.Status == "" {
		room.Status = domain.RoomStatusAvailable
	}
	rm := *room
	r.db.rooms[rm.ID] = &rm
	return nil
}

func (r *MemoryInventoryRepository) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rm, ok := r.db.rooms[id]
	if !ok {
		return nil, domain.NewNotFoundError("room", id)
	}
	out := *rm
	return &out, nil
}

func (r *MemoryInventoryRepository) ListRooms(ctx context.Context, hotelID, roomTypeID string) ([]*domain.Room, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var rooms []*domain.Room
	for _, rm := range r.db.rooms {
		if rm.HotelID != hotelID || (roomTypeID != "" && rm.RoomTypeID != roomTypeID) {
			continue
		}
		out := *rm
		rooms = append(rooms, &out)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (r *MemoryInventoryRepository) CountActiveRooms(ctx context.Context, hotelID, roomTypeID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.countActiveRooms(hotelID, roomTypeID), nil
}

func (r *MemoryInventoryRepository) UpdateRoomStatus(ctx context.Context, id string, status domain.RoomStatus, now time.Time) (*domain.Room, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rm, ok := r.db.rooms[id]
	if !ok {
		return nil, domain.NewNotFoundError("room", id)
	}
	rm.Status = status
	rm.UpdatedAt = now.UTC()
	out := *rm
	return &out, nil
}

// MemoryBookingRepository implements BookingRepository in memory
type MemoryBookingRepository struct {
	db *memoryDB
}

func (r *MemoryBookingRepository) CreateWithCapacity(ctx context.Context, booking *domain.Booking, redemption *CouponRedemption) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	active := r.db.countActiveRooms(booking.HotelID, booking.RoomTypeID)
	held := r.db.countOverlapping(booking.HotelID, booking.RoomTypeID, booking.CheckInDate, booking.CheckOutDate)
	if active-held <= 0 {
		return &domain.CapacityError{RoomTypeID: booking.RoomTypeID, CheckIn: booking.CheckInDate, CheckOut: booking.CheckOutDate}
	}

	var coupon *domain.Coupon
	if redemption != nil {
		c, err := r.db.checkRedemption(redemption)
		if err != nil {
			return err
		}
		coupon = c
	}

	r.db.bookings[booking.ID] = booking.Clone()
	if coupon != nil {
		r.db.applyRedemption(coupon, redemption)
	}
	return nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return b.Clone(), nil
}

func (r *MemoryBookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var all []*domain.Booking
	for _, b := range r.db.bookings {
		if b.UserID == userID {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*domain.Booking{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := make([]*domain.Booking, 0, end-offset)
	for _, b := range all[offset:end] {
		page = append(page, b.Clone())
	}
	return page, total, nil
}

func (r *MemoryBookingRepository) CountOverlapping(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.countOverlapping(hotelID, roomTypeID, checkIn, checkOut), nil
}

func (r *MemoryBookingRepository) UpdateStatus(ctx context.Context, booking *domain.Booking, from domain.BookingStatus, room *domain.RoomStatusChange) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.bookings[booking.ID]
	if !ok {
		return domain.NewNotFoundError("booking", booking.ID)
	}
	if stored.Status != from {
		return domain.NewInvalidStateError("booking", booking.ID, string(stored.Status), "update")
	}

	var rm *domain.Room
	if room != nil {
		rm, ok = r.db.rooms[room.RoomID]
		if !ok {
			return domain.NewNotFoundError("room", room.RoomID)
		}
		if room.Expect != "" && (!rm.IsActive || rm.Status != room.Expect) {
			current := string(rm.Status)
			if !rm.IsActive {
				current = "INACTIVE"
			}
			return domain.NewInvalidStateError("room", rm.ID, current, "assign")
		}
	}

	r.db.bookings[booking.ID] = booking.Clone()
	if rm != nil {
		rm.Status = room.Status
		rm.UpdatedAt = booking.UpdatedAt
	}
	if booking.Status == domain.BookingStatusCancelled {
		for _, s := range r.db.sessions {
			if s.BookingID == booking.ID && s.Status == domain.SessionStatusPending {
				_ = s.Fail(domain.FailureBookingCancelled, booking.UpdatedAt)
			}
		}
	}
	return nil
}

// MemoryCouponRepository implements CouponRepository in memory
type MemoryCouponRepository struct {
	db *memoryDB
}

func (r *MemoryCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	code := domain.NormalizeCode(coupon.Code)
	for _, c := range r.db.coupons {
		if c.DeletedAt == nil && domain.NormalizeCode(c.Code) == code {
			return domain.NewValidationError("code", "a coupon with this code already exists")
		}
	}
	if coupon.ID == "" {
		coupon.ID = uuid.New().String()
	}
	r.db.coupons[coupon.ID] = coupon.Clone()
	return nil
}

func (r *MemoryCouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.coupons[id]
	if !ok {
		return nil, domain.NewNotFoundError("coupon", id)
	}
	return c.Clone(), nil
}

func (r *MemoryCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	norm := domain.NormalizeCode(code)
	for _, c := range r.db.coupons {
		if c.DeletedAt == nil && domain.NormalizeCode(c.Code) == norm {
			return c.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("coupon", code)
}

func (r *MemoryCouponRepository) List(ctx context.Context, hotelID string) ([]*domain.Coupon, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Coupon
	for _, c := range r.db.coupons {
		if hotelID != "" && c.HotelID != hotelID && c.HotelID != "" {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Code, out[j].Code) < 0 })
	return out, nil
}

func (r *MemoryCouponRepository) Deactivate(ctx context.Context, id string, now time.Time) (*domain.Coupon, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.coupons[id]
	if !ok || c.DeletedAt != nil {
		return nil, domain.NewNotFoundError("coupon", id)
	}
	c.Deactivate(now)
	return c.Clone(), nil
}

func (r *MemoryCouponRepository) HasUsage(ctx context.Context, couponID, userID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.hasUsage(couponID, userID), nil
}

func (r *MemoryCouponRepository) RecordUsage(ctx context.Context, redemption *CouponRedemption) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, err := r.db.checkRedemption(redemption)
	if err != nil {
		return err
	}
	r.db.applyRedemption(c, redemption)
	return nil
}

// MemoryPricingRepository implements PricingRepository in memory
type MemoryPricingRepository struct {
	db *memoryDB
}

func (r *MemoryPricingRepository) GetRules(ctx context.Context, hotelID string) (*domain.PricingRules, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rules, ok := r.db.rules[hotelID]
	if !ok {
		return &domain.PricingRules{HotelID: hotelID}, nil
	}
	return cloneRules(rules), nil
}

func (r *MemoryPricingRepository) ReplaceRules(ctx context.Context, rules *domain.PricingRules) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := cloneRules(rules)
	for i := range c.Seasonal {
		if c.Seasonal[i].ID == "" {
			c.Seasonal[i].ID = uuid.New().String()
		}
	}
	for i := range c.DayTypes {
		if c.DayTypes[i].ID == "" {
			c.DayTypes[i].ID = uuid.New().String()
		}
	}
	for i := range c.Occupancy {
		if c.Occupancy[i].ID == "" {
			c.Occupancy[i].ID = uuid.New().String()
		}
	}
	c.Normalize()
	r.db.rules[rules.HotelID] = c
	return nil
}

func cloneRules(p *domain.PricingRules) *domain.PricingRules {
	return &domain.PricingRules{
		HotelID:   p.HotelID,
		Seasonal:  append([]domain.SeasonalRule(nil), p.Seasonal...),
		DayTypes:  append([]domain.DayTypeRule(nil), p.DayTypes...),
		Occupancy: append([]domain.OccupancyTier(nil), p.Occupancy...),
	}
}

// MemoryPaymentRepository implements PaymentRepository in memory
type MemoryPaymentRepository struct {
	db *memoryDB
}

func (r *MemoryPaymentRepository) GetOrCreateSession(ctx context.Context, candidate *domain.PaymentSession, now time.Time) (*domain.PaymentSession, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.bookings[candidate.BookingID]; !ok {
		return nil, false, domain.NewNotFoundError("booking", candidate.BookingID)
	}

	for _, s := range r.db.sessions {
		if s.BookingID != candidate.BookingID || s.Status != domain.SessionStatusPending {
			continue
		}
		if s.IsExpiredAt(now) {
			_ = s.Expire(now)
			continue
		}
		return s.Clone(), false, nil
	}

	r.db.sessions[candidate.ID] = candidate.Clone()
	return candidate.Clone(), true, nil
}

func (r *MemoryPaymentRepository) GetSession(ctx context.Context, id string) (*domain.PaymentSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("payment session", id)
	}
	return s.Clone(), nil
}

func (r *MemoryPaymentRepository) MarkSessionExpired(ctx context.Context, id string, now time.Time) (*domain.PaymentSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("payment session", id)
	}
	if s.Status == domain.SessionStatusPending {
		_ = s.Expire(now)
	}
	return s.Clone(), nil
}

func (r *MemoryPaymentRepository) MarkSessionFailed(ctx context.Context, id, reason string, now time.Time) (*domain.PaymentSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("payment session", id)
	}
	if s.Status == domain.SessionStatusPending {
		_ = s.Fail(reason, now)
	}
	return s.Clone(), nil
}

func (r *MemoryPaymentRepository) ConfirmPayment(ctx context.Context, payment *domain.Payment, now time.Time) (*domain.PaymentSession, *domain.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[payment.SessionID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("payment session", payment.SessionID)
	}
	if s.IsExpiredAt(now) {
		_ = s.Expire(now)
		return nil, nil, domain.ErrSessionExpired
	}

	b, ok := r.db.bookings[s.BookingID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("booking", s.BookingID)
	}

	session := s.Clone()
	if err := session.MarkPaid(now); err != nil {
		return nil, nil, err
	}
	booking := b.Clone()
	if err := booking.Confirm(now); err != nil {
		return nil, nil, err
	}
	if _, dup := r.db.payments[payment.SessionID]; dup {
		return nil, nil, domain.ErrAlreadyVerified
	}
	for _, existing := range r.db.payments {
		if existing.Method == payment.Method && existing.ExternalTransactionID == payment.ExternalTransactionID {
			return nil, nil, domain.NewDuplicateTransactionError(payment.Method, payment.ExternalTransactionID)
		}
	}

	p := *payment
	r.db.payments[p.SessionID] = &p
	r.db.sessions[session.ID] = session
	r.db.bookings[booking.ID] = booking
	return session.Clone(), booking.Clone(), nil
}

func (r *MemoryPaymentRepository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var overdue []*domain.PaymentSession
	for _, s := range r.db.sessions {
		if s.IsExpiredAt(now) {
			overdue = append(overdue, s)
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].ExpiresAt.Before(overdue[j].ExpiresAt) })
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}

	expired := make([]*domain.PaymentSession, 0, len(overdue))
	for _, s := range overdue {
		_ = s.Expire(now)
		expired = append(expired, s.Clone())
	}
	return expired, nil
}

func (r *MemoryPaymentRepository) ListPayments(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Payment
	for _, p := range r.db.payments {
		if p.BookingID == bookingID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
