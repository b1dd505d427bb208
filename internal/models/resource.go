package models

import "time"

// ResourceType defines the kind of donation a resource posting offers.
type ResourceType string

const (
	BloodResource ResourceType = "blood"
	FoodResource  ResourceType = "food"
)

// ResourceStatus tracks the availability of a posting.
// "pending" means a request against it has been accepted.
type ResourceStatus string

const (
	ResourceStatusAvailable ResourceStatus = "available"
	ResourceStatusPending   ResourceStatus = "pending"
	ResourceStatusCompleted ResourceStatus = "completed"
	ResourceStatusCancelled ResourceStatus = "cancelled"
)

// Resource represents a donation posting owned by a donor.
type Resource struct {
	BaseModel
	OwnerID     uint           `gorm:"not null;index" json:"ownerId"`
	Type        ResourceType   `gorm:"type:varchar(20);not null;index" json:"type"`
	BloodType   string         `gorm:"type:varchar(5)" json:"bloodType,omitempty"` // required when Type is blood
	Quantity    string         `gorm:"type:varchar(50);not null" json:"quantity"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Address     string         `gorm:"type:varchar(255);not null" json:"address"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	Status      ResourceStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`

	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// TableName specifies the table name for the Resource model.
func (Resource) TableName() string {
	return "resources"
}
