package handlers_test

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/auth"
	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/domain/receiver"
	"github.com/geocoder89/certhub/internal/domain/subscription"
	"github.com/geocoder89/certhub/internal/domain/user"
	"github.com/geocoder89/certhub/internal/http/middlewares"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

const (
	ownerID    = "6f1c7a52-3a57-4a39-9d2b-6a0b6b2f8a11"
	strangerID = "0b3e3a1e-0c55-4b7e-8f43-1f4d4c8ad0b2"
	eventID    = "e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980"
)

// setupRouter mounts one handler and, when userID is set, acts as if
// RequireAuth already ran.
func setupRouter(method, path, userID string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		if userID != "" {
			c.Set(middlewares.CtxUserID, userID)
		}
		c.Next()
	}, h)

	return r
}

type fakeEventsRepo struct {
	createFn   func(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	getFn      func(ctx context.Context, id string) (event.Event, error)
	listUserFn func(ctx context.Context, userID string) ([]event.Event, error)
	updateFn   func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	deleteFn   func(ctx context.Context, id string) error

	mu      sync.Mutex
	updated int
	deleted int
}

func (f *fakeEventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return event.NewFromCreateRequest(req), nil
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return event.Event{}, event.ErrNotFound
}

func (f *fakeEventsRepo) ListByUser(ctx context.Context, userID string) ([]event.Event, error) {
	if f.listUserFn != nil {
		return f.listUserFn(ctx, userID)
	}
	return []event.Event{}, nil
}

func (f *fakeEventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	f.mu.Lock()
	f.updated++
	f.mu.Unlock()

	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return event.Event{ID: id, Name: req.Name}, nil
}

func (f *fakeEventsRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleted++
	f.mu.Unlock()

	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// ownedBy returns a getFn serving a single event.
func ownedBy(userID string) func(ctx context.Context, id string) (event.Event, error) {
	return func(ctx context.Context, id string) (event.Event, error) {
		if id != eventID {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{ID: eventID, UserID: userID, Name: "CPR Basics"}, nil
	}
}

type fakeSubmitter struct {
	submitFn func(ctx context.Context, principalID, eventID string) (event.Event, error)
}

func (f *fakeSubmitter) Submit(ctx context.Context, principalID, eventID string) (event.Event, error) {
	if f.submitFn != nil {
		return f.submitFn(ctx, principalID, eventID)
	}
	return event.Event{ID: eventID, UserID: principalID, IsSubmitted: true}, nil
}

type fakeUsersRepo struct {
	createFn      func(ctx context.Context, u user.User) (user.User, error)
	getFn         func(ctx context.Context, id string) (user.User, error)
	getByEmailFn  func(ctx context.Context, email string) (user.User, error)
	emailExistsFn func(ctx context.Context, email string) (bool, error)
	updateFn      func(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if f.emailExistsFn != nil {
		return f.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return user.User{ID: id, Email: req.Email, Firstname: req.Firstname, Lastname: req.Lastname}, nil
}

type fakeTokens struct {
	issued []auth.Identity
}

func (f *fakeTokens) GenerateToken(id auth.Identity) (string, error) {
	f.issued = append(f.issued, id)
	return "token-for-" + id.ID, nil
}

type fakeAttendeesRepo struct {
	createFn func(ctx context.Context, a attendee.Attendee) (attendee.Attendee, error)
	listFn   func(ctx context.Context, eventID string) ([]attendee.Attendee, error)
	getFn    func(ctx context.Context, id string) (attendee.Attendee, error)
	updateFn func(ctx context.Context, id string, req attendee.UpdateAttendeeRequest) (attendee.Attendee, error)
	deleteFn func(ctx context.Context, id string) error

	created []attendee.Attendee
	deleted int
}

func (f *fakeAttendeesRepo) Create(ctx context.Context, a attendee.Attendee) (attendee.Attendee, error) {
	f.created = append(f.created, a)
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return a, nil
}

func (f *fakeAttendeesRepo) ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error) {
	if f.listFn != nil {
		return f.listFn(ctx, eventID)
	}
	return []attendee.Attendee{}, nil
}

func (f *fakeAttendeesRepo) GetByID(ctx context.Context, id string) (attendee.Attendee, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return attendee.Attendee{}, attendee.ErrNotFound
}

func (f *fakeAttendeesRepo) Update(ctx context.Context, id string, req attendee.UpdateAttendeeRequest) (attendee.Attendee, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return attendee.Attendee{ID: id, Firstname: req.Firstname, Lastname: req.Lastname, Email: req.Email}, nil
}

func (f *fakeAttendeesRepo) Delete(ctx context.Context, id string) error {
	f.deleted++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeReceiversRepo struct {
	createFn func(ctx context.Context, req receiver.CreateReceiverRequest) (receiver.Receiver, error)
	listFn   func(ctx context.Context, eventID string) ([]receiver.Receiver, error)
	getFn    func(ctx context.Context, id string) (receiver.Receiver, error)
	deleteFn func(ctx context.Context, id string) error

	deleted int
}

func (f *fakeReceiversRepo) Create(ctx context.Context, req receiver.CreateReceiverRequest) (receiver.Receiver, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return receiver.NewFromCreateRequest(req), nil
}

func (f *fakeReceiversRepo) ListByEvent(ctx context.Context, eventID string) ([]receiver.Receiver, error) {
	if f.listFn != nil {
		return f.listFn(ctx, eventID)
	}
	return []receiver.Receiver{}, nil
}

func (f *fakeReceiversRepo) GetByID(ctx context.Context, id string) (receiver.Receiver, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return receiver.Receiver{}, receiver.ErrNotFound
}

func (f *fakeReceiversRepo) Delete(ctx context.Context, id string) error {
	f.deleted++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeSubscriptions struct {
	createFn func(ctx context.Context, userID string, req subscription.CreateRequest) (subscription.Status, error)
	statusFn func(ctx context.Context, userID string) (subscription.Status, error)
}

func (f *fakeSubscriptions) Create(ctx context.Context, userID string, req subscription.CreateRequest) (subscription.Status, error) {
	if f.createFn != nil {
		return f.createFn(ctx, userID, req)
	}
	return subscription.Status{FreeTrialEligible: true}, nil
}

func (f *fakeSubscriptions) Status(ctx context.Context, userID string) (subscription.Status, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, userID)
	}
	return subscription.Status{FreeTrialEligible: true}, nil
}
