package model

import (
	"time"

	"github.com/google/uuid"
)

// MemberModel is the GORM-specific struct for the 'members' table.
type MemberModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"type:varchar(255);not null;index:idx_members_on_name"`
	DateOfBirth *time.Time `gorm:"type:date"`
	Phone       string     `gorm:"type:varchar(64);not null;default:''"`
	Occupation  string     `gorm:"type:varchar(255);not null;default:''"`
	Address     string     `gorm:"type:text;not null;default:''"`
	About       string     `gorm:"type:text;not null;default:''"`
	ImageRef    string     `gorm:"type:text;not null;default:''"`
	Longitude   *float64   `gorm:"type:decimal(11,8)"`
	Latitude    *float64   `gorm:"type:decimal(10,8)"`
	SpouseID    *uuid.UUID `gorm:"type:uuid;index:idx_members_on_spouse"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (MemberModel) TableName() string {
	return "members"
}

// MemberChildModel is one parent -> child edge. The child_id index doubles as the reverse
// index used to find a member's parent.
type MemberChildModel struct {
	ParentID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChildID   uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_member_children_on_child"`
	CreatedAt time.Time `gorm:"index:idx_member_children_on_child"`
}

// TableName explicitly sets the table name for GORM.
func (MemberChildModel) TableName() string {
	return "member_children"
}
