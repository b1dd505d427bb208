package models

// RequestStatus defines the state of a resource request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusCompleted RequestStatus = "completed"
)

// Decided reports whether the status is a donor decision (terminal for this flow).
func (s RequestStatus) Decided() bool {
	return s == RequestStatusAccepted || s == RequestStatusDeclined
}

// Request represents one requester's claim on one resource.
// DonorID is copied from the resource's owner at creation time and never
// changes afterwards, even if the resource is later reassigned elsewhere.
type Request struct {
	BaseModel
	RequesterID uint          `gorm:"not null;index:idx_request_pair" json:"requesterId"`
	ResourceID  uint          `gorm:"not null;index:idx_request_pair" json:"resourceId"`
	DonorID     uint          `gorm:"not null;index" json:"donorId"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Requester User     `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Donor     User     `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Resource  Resource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`
}

// TableName specifies the table name for the Request model.
func (Request) TableName() string {
	return "requests"
}
