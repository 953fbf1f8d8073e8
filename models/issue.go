package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Pothole     IssueCategory = "Pothole"
	Garbage     IssueCategory = "Garbage"
	WaterLeak   IssueCategory = "Water Leak"
	Streetlight IssueCategory = "Streetlight"
	Road        IssueCategory = "Road"
	Other       IssueCategory = "Other"
)

// ValidCategories is the closed set of reportable categories.
var ValidCategories = map[IssueCategory]bool{
	Pothole:     true,
	Garbage:     true,
	WaterLeak:   true,
	Streetlight: true,
	Road:        true,
	Other:       true,
}

// IssueStatus enum
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusRejected   IssueStatus = "rejected"
)

// Valid reports whether s is a known status value.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s IssueStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Issue represents a civic issue reported by a citizen. Votes is a cached
// counter over the votes collection; Recount repairs any drift.
type Issue struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title              string             `bson:"title" json:"title"`
	Description        string             `bson:"description" json:"description"`
	Category           IssueCategory      `bson:"category" json:"category"`
	Severity           int                `bson:"severity" json:"severity"`
	Urgency            int                `bson:"urgency" json:"urgency"`
	Status             IssueStatus        `bson:"status" json:"status"`
	CreatedBy          primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Votes              int                `bson:"votes" json:"votes"`
	FileIDs            []string           `bson:"fileIds" json:"fileIds"`
	Address            string             `bson:"address" json:"address"`
	Latitude           *float64           `bson:"lat,omitempty" json:"lat,omitempty"`
	Longitude          *float64           `bson:"lng,omitempty" json:"lng,omitempty"`
	ProgressFileID     *string            `bson:"progressFileId,omitempty" json:"progressFileId,omitempty"`
	OfficialNote       *string            `bson:"officialNote,omitempty" json:"officialNote,omitempty"`
	ConfirmationFileID *string            `bson:"confirmationFileId,omitempty" json:"confirmationFileId,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}
