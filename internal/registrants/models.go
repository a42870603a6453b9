package registrants

import (
	"time"

	"github.com/google/uuid"
)

// Registrant is the person a reservation is held for. One row per confirmed
// or pending reservation; there is no account model.
type Registrant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"-"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);index;not null" json:"email"`
	Phone     string    `gorm:"type:varchar(30);not null" json:"phone"`
	Gender    string    `gorm:"type:varchar(10);check:gender IN ('male', 'female', 'other')" json:"gender"`
	AgeRange  string    `gorm:"type:varchar(10);check:age_range IN ('18-25', '26-35', '36-45', '46-55', '55+')" json:"ageRange"`
	Bio       string    `gorm:"type:text" json:"aboutYourself,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name for Registrant
func (Registrant) TableName() string {
	return "registrants"
}
