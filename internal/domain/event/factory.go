package event

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateEventRequest) Event {
	now := time.Now().UTC()

	return Event{
		ID:                    uuid.NewString(),
		UserID:                req.UserID,
		Name:                  req.Name,
		Date:                  req.Date,
		Address:               req.Address,
		City:                  req.City,
		State:                 req.State,
		Zipcode:               req.Zipcode,
		CourseNo:              req.CourseNo,
		CourseName:            req.CourseName,
		NumberOfCourseCredits: req.NumberOfCourseCredits,
		PresenterName:         req.PresenterName,
		TrainingProvider:      req.TrainingProvider,
		IsSubmitted:           false,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
