package event

import (
	"errors"
	"time"
)

type Event struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"userId"`
	Name                  string    `json:"name"`
	Date                  time.Time `json:"date"`
	Address               string    `json:"address"`
	City                  string    `json:"city"`
	State                 string    `json:"state"`
	Zipcode               string    `json:"zipcode"`
	CourseNo              string    `json:"courseNo"`
	CourseName            string    `json:"courseName"`
	NumberOfCourseCredits *float64  `json:"numberOfCourseCredits,omitempty"`
	PresenterName         *string   `json:"presenterName,omitempty"`
	TrainingProvider      *string   `json:"trainingProvider,omitempty"`
	IsSubmitted           bool      `json:"isSubmitted"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (e Event) OwnerID() string { return e.UserID }

var (
	ErrNotFound         = errors.New("event not found")
	ErrAlreadySubmitted = errors.New("event already submitted")
)

type CreateEventRequest struct {
	UserID                string    `json:"-"`
	Name                  string    `json:"name" binding:"required,max=200"`
	Date                  time.Time `json:"date" binding:"required"`
	Address               string    `json:"address" binding:"required,max=200"`
	City                  string    `json:"city" binding:"required,max=100"`
	State                 string    `json:"state" binding:"required,max=100"`
	Zipcode               string    `json:"zipcode" binding:"required,max=20"`
	CourseNo              string    `json:"courseNo" binding:"required,max=100"`
	CourseName            string    `json:"courseName" binding:"required,max=200"`
	NumberOfCourseCredits *float64  `json:"numberOfCourseCredits" binding:"omitempty,min=0"`
	PresenterName         *string   `json:"presenterName" binding:"omitempty,max=200"`
	TrainingProvider      *string   `json:"trainingProvider" binding:"omitempty,max=200"`
}

// a full update payload; isSubmitted is owned by the submission flow
type UpdateEventRequest struct {
	Name                  string    `json:"name" binding:"required,max=200"`
	Date                  time.Time `json:"date" binding:"required"`
	Address               string    `json:"address" binding:"required,max=200"`
	City                  string    `json:"city" binding:"required,max=100"`
	State                 string    `json:"state" binding:"required,max=100"`
	Zipcode               string    `json:"zipcode" binding:"required,max=20"`
	CourseNo              string    `json:"courseNo" binding:"required,max=100"`
	CourseName            string    `json:"courseName" binding:"required,max=200"`
	NumberOfCourseCredits *float64  `json:"numberOfCourseCredits" binding:"omitempty,min=0"`
	PresenterName         *string   `json:"presenterName" binding:"omitempty,max=200"`
	TrainingProvider      *string   `json:"trainingProvider" binding:"omitempty,max=200"`
}
