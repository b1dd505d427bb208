package models

// UserRole defines what a user is allowed to do in the marketplace.
type UserRole string

const (
	RoleDonor     UserRole = "donor"
	RoleRequester UserRole = "requester"
	RoleAdmin     UserRole = "admin"
)

// User represents an account in the system. Donors post resources,
// requesters claim them.
type User struct {
	BaseModel
	FullName         string   `gorm:"type:varchar(100);not null" json:"fullName"`
	Email            string   `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash     string   `gorm:"type:varchar(255);not null" json:"-"` // never exposed
	Phone            string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	BloodType        string   `gorm:"type:varchar(5)" json:"bloodType,omitempty"`
	OrganizationName string   `gorm:"type:varchar(150)" json:"organizationName,omitempty"`
	Role             UserRole `gorm:"type:varchar(20);not null;index" json:"role"`
}

// UserBasicInfo holds minimal public information about a user.
// Used when denormalizing counterpart identity into requests and conversations.
type UserBasicInfo struct {
	ID       uint     `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	Role     UserRole `json:"role"`
}

// BasicInfo returns the public projection of the user.
func (u *User) BasicInfo() *UserBasicInfo {
	return &UserBasicInfo{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}
